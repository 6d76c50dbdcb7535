package workflow

import (
	"github.com/antavlouros/tempo/internal/generate"
	"github.com/antavlouros/tempo/pkg/models"
)

// State names the workflow node a session is in. Most handlers complete in
// one turn and return to the menu; the confirm states span turns.
type State string

const (
	StateInitial       State = "initial"
	StateMenu          State = "menu"
	StateGenerate      State = "generate_tasks"
	StateUpdateStatus  State = "update_status"
	StateDelete        State = "delete_tasks"
	StateList          State = "list_tasks"
	StateComment       State = "comment_tasks"
	StateConfirmDrafts State = "confirm_drafts"
	StateConfirmDelete State = "confirm_delete"
	StateExit          State = "exit"
)

// Session is the per-conversation state the controller threads between
// turns.
type Session struct {
	State State

	// LastListing is the task order of the most recent listing, so index
	// references like "1-3" resolve against what the user last saw.
	LastListing []*models.Task

	// PendingFlagged holds generated drafts waiting for the user to
	// confirm past a collision warning.
	PendingFlagged []generate.Flagged

	// PendingDeletion holds task IDs waiting for deletion confirmation.
	PendingDeletion []string
}

// NewSession creates a session in the initial state.
func NewSession() *Session {
	return &Session{State: StateInitial}
}

// Done reports whether the conversation has ended.
func (s *Session) Done() bool {
	return s.State == StateExit
}
