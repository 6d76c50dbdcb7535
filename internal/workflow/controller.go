// Package workflow is the conversational core: a state machine that takes
// one user message per turn, classifies it, routes it to the right task
// operation, and produces the reply text.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/generate"
	"github.com/antavlouros/tempo/internal/llm"
	"github.com/antavlouros/tempo/internal/resolve"
	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/internal/taskops"
	"github.com/antavlouros/tempo/pkg/models"
)

// Controller drives sessions. It is safe to reuse across sequential
// sessions; all per-conversation state lives in the Session.
type Controller struct {
	completer llm.Completer
	embedder  embedding.Embedder
	store     store.Store
	resolver  *resolve.Resolver
	generator *generate.Generator
	manager   *taskops.Manager

	retry         llm.RetryPolicy
	commentRadius time.Duration

	// formatList renders a listing for the reply. The CLI injects a
	// styled renderer; the default is plain text.
	formatList func([]*models.Task) string
	// now is replaceable for tests.
	now func() time.Time
}

// Options configures a Controller.
type Options struct {
	Completer     llm.Completer
	Embedder      embedding.Embedder
	Store         store.Store
	Resolver      *resolve.Resolver
	Generator     *generate.Generator
	Manager       *taskops.Manager
	Retry         llm.RetryPolicy
	CommentRadius time.Duration
	FormatList    func([]*models.Task) string
	Now           func() time.Time
}

// New creates a controller.
func New(opts Options) *Controller {
	c := &Controller{
		completer:     opts.Completer,
		embedder:      opts.Embedder,
		store:         opts.Store,
		resolver:      opts.Resolver,
		generator:     opts.Generator,
		manager:       opts.Manager,
		retry:         opts.Retry,
		commentRadius: opts.CommentRadius,
		formatList:    opts.FormatList,
		now:           opts.Now,
	}
	if c.commentRadius == 0 {
		c.commentRadius = time.Hour
	}
	if c.formatList == nil {
		c.formatList = plainListing
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

const fallbackWelcome = "Hi! I can create, list, update, and delete tasks for you. What would you like to do?"

// Start opens a session: overdue tasks are swept first, then the model
// greets the user. A greeting failure falls back to static text rather
// than failing the session.
func (c *Controller) Start(ctx context.Context) (*Session, string, error) {
	session := NewSession()

	if changed, err := c.manager.InferOverdue(ctx, c.now()); err != nil {
		return nil, "", fmt.Errorf("sweep overdue tasks: %w", err)
	} else if len(changed) > 0 {
		log.Printf("[workflow] %d task(s) moved to over_deadline", len(changed))
	}

	welcome := fallbackWelcome
	err := llm.Do(ctx, c.retry, func(ctx context.Context) error {
		text, err := c.completer.Complete(ctx, welcomeSystemPrompt, "A user just opened the task manager.")
		if err == nil {
			welcome = strings.TrimSpace(text)
		}
		return err
	})
	if err != nil {
		log.Printf("[workflow] welcome generation failed, using fallback: %v", err)
	}

	session.State = StateMenu
	return session, welcome, nil
}

// Advance processes one user message and returns the reply. After the
// session reaches the exit state further input is rejected.
func (c *Controller) Advance(ctx context.Context, session *Session, input string) (string, error) {
	if session.Done() {
		return "", errors.New("session has ended")
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "Say something and I'll help, or \"menu\" for what I can do.", nil
	}

	// Pending confirmations intercept the turn.
	switch session.State {
	case StateConfirmDrafts:
		if reply, handled := c.confirmDrafts(ctx, session, input); handled {
			return reply, nil
		}
	case StateConfirmDelete:
		if reply, handled := c.confirmDelete(ctx, session, input); handled {
			return reply, nil
		}
	}

	intent := c.classify(ctx, input)
	switch intent {
	case IntentGenerate:
		session.State = StateGenerate
		return c.handleGenerate(ctx, session, input)
	case IntentStatus:
		session.State = StateUpdateStatus
		return c.handleStatus(ctx, session, input)
	case IntentList:
		session.State = StateList
		return c.handleList(ctx, session)
	case IntentDelete:
		session.State = StateDelete
		return c.handleDelete(ctx, session, input)
	case IntentComment:
		session.State = StateComment
		return c.handleComment(ctx, session)
	case IntentMenu:
		session.State = StateMenu
		return menuText, nil
	case IntentQuit:
		session.State = StateExit
		return "Goodbye! Your tasks are saved.", nil
	default:
		session.State = StateMenu
		return c.handleGeneral(ctx, input)
	}
}

func affirmative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "yep", "ok", "okay", "sure", "confirm":
		return true
	}
	return false
}

func negative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "n", "no", "nope", "cancel", "skip":
		return true
	}
	return false
}

// confirmDrafts resolves a pending collision confirmation. A clear yes
// commits, a clear no discards; anything else discards the drafts and lets
// the message be handled normally.
func (c *Controller) confirmDrafts(ctx context.Context, session *Session, input string) (string, bool) {
	flagged := session.PendingFlagged
	session.PendingFlagged = nil
	session.State = StateMenu

	if affirmative(input) {
		committed, err := c.generator.CommitFlagged(ctx, flagged)
		if err != nil {
			return fmt.Sprintf("I could not save those tasks: %v", err), true
		}
		return fmt.Sprintf("Saved %d task(s) despite the similarity.", len(committed)), true
	}
	if negative(input) {
		return fmt.Sprintf("Dropped %d duplicate-looking task(s).", len(flagged)), true
	}
	// Not an answer; the drafts are discarded and the message proceeds.
	return "", false
}

func (c *Controller) confirmDelete(ctx context.Context, session *Session, input string) (string, bool) {
	ids := session.PendingDeletion
	session.PendingDeletion = nil
	session.State = StateMenu

	if affirmative(input) {
		outcomes := c.manager.Delete(ctx, ids)
		var deleted, failed int
		for _, o := range outcomes {
			if o.OK() {
				deleted++
			} else {
				failed++
			}
		}
		reply := fmt.Sprintf("Deleted %d task(s).", deleted)
		if failed > 0 {
			reply += fmt.Sprintf(" %d could not be deleted.", failed)
		}
		session.LastListing = nil
		return reply, true
	}
	if negative(input) {
		return "Deletion cancelled.", true
	}
	return "", false
}

func (c *Controller) handleGenerate(ctx context.Context, session *Session, input string) (string, error) {
	result, err := c.generator.Generate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("generate tasks: %w", err)
	}

	var b strings.Builder
	if len(result.Committed) > 0 {
		fmt.Fprintf(&b, "Created %d task(s):\n", len(result.Committed))
		for _, task := range result.Committed {
			fmt.Fprintf(&b, "  - %s%s\n", task.Description, scheduleSuffix(task))
		}
	}
	for _, d := range result.Dropped {
		fmt.Fprintf(&b, "Skipped %q: %s.\n", d.Draft.Description, d.Reason)
	}
	if len(result.Flagged) > 0 {
		fmt.Fprintf(&b, "%d task(s) look very similar to tasks you already have:\n", len(result.Flagged))
		for _, f := range result.Flagged {
			fmt.Fprintf(&b, "  - %q resembles %q\n", f.Draft.Description, f.Matches[0].Task.Description)
		}
		b.WriteString("Save them anyway? (yes/no)")
		session.PendingFlagged = result.Flagged
		session.State = StateConfirmDrafts
	} else {
		session.State = StateMenu
	}

	reply := strings.TrimRight(b.String(), "\n")
	if reply == "" {
		reply = "I didn't find any tasks in that. Try describing what needs doing."
	}
	return reply, nil
}

func (c *Controller) handleList(ctx context.Context, session *Session) (string, error) {
	if _, err := c.manager.InferOverdue(ctx, c.now()); err != nil {
		return "", err
	}

	tasks, err := c.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	session.LastListing = tasks
	session.State = StateMenu

	if len(tasks) == 0 {
		return "You have no tasks yet.", nil
	}
	return c.formatList(tasks), nil
}

var indexExprPattern = regexp.MustCompile(`\b\d+(?:\s*-\s*\d+)?(?:\s*,\s*\d+(?:\s*-\s*\d+)?)*\b`)

// resolveReferences maps a message to task IDs: literal IDs first, then
// index expressions against the last listing, then a semantic match.
func (c *Controller) resolveReferences(ctx context.Context, session *Session, input string) ([]string, string, error) {
	ids, err := c.resolver.ExtractIDs(ctx, input)
	if err != nil {
		return nil, "", err
	}
	if len(ids) > 0 {
		return ids, "", nil
	}

	if len(session.LastListing) > 0 {
		if expr := indexExprPattern.FindString(input); expr != "" {
			if indexes, err := resolve.ParseIndexes(expr, len(session.LastListing)); err == nil {
				for _, i := range indexes {
					ids = append(ids, session.LastListing[i].ID)
				}
				return ids, "", nil
			}
		}
	}

	task, err := c.resolver.Semantic(ctx, input)
	if err != nil {
		var ambiguous *resolve.AmbiguousError
		if errors.As(err, &ambiguous) {
			var b strings.Builder
			b.WriteString("That could mean more than one task:\n")
			for _, cand := range ambiguous.Candidates {
				fmt.Fprintf(&b, "  - %s (%s)\n", cand.Task.Description, cand.Task.ID)
			}
			b.WriteString("Could you be more specific?")
			return nil, b.String(), nil
		}
		if errors.Is(err, resolve.ErrNoMatch) {
			return nil, "I couldn't find a task matching that.", nil
		}
		return nil, "", err
	}
	return []string{task.ID}, "", nil
}

// statusKeywords is the lexical fast path: when the message names exactly
// one status, no model call is needed. Keywords match on word boundaries so
// "incomplete" never reads as "complete".
var statusKeywords = []struct {
	pattern *regexp.Regexp
	status  models.TaskStatus
}{
	{regexp.MustCompile(`\bover deadline\b`), models.StatusOverDeadline},
	{regexp.MustCompile(`\boverdue\b`), models.StatusOverDeadline},
	{regexp.MustCompile(`\bon work\b`), models.StatusOnWork},
	{regexp.MustCompile(`\bworking on\b`), models.StatusOnWork},
	{regexp.MustCompile(`\bin progress\b`), models.StatusOnWork},
	{regexp.MustCompile(`\bstarted\b`), models.StatusOnWork},
	{regexp.MustCompile(`\bdone\b`), models.StatusDone},
	{regexp.MustCompile(`\bfinished\b`), models.StatusDone},
	{regexp.MustCompile(`\bcompleted?\b`), models.StatusDone},
	{regexp.MustCompile(`\bpending\b`), models.StatusPending},
	{regexp.MustCompile(`\bnot started\b`), models.StatusPending},
}

// lexicalStatus returns the single status a message names, or false when it
// names none or more than one. A keyword preceded by "not" is a negation,
// not a target status; those messages go to the model instead.
func lexicalStatus(input string) (models.TaskStatus, bool) {
	lower := strings.ToLower(input)
	var found models.TaskStatus
	matched := false
	for _, kw := range statusKeywords {
		loc := kw.pattern.FindStringIndex(lower)
		if loc == nil {
			continue
		}
		if kw.status != models.StatusPending && strings.HasSuffix(lower[:loc[0]], "not ") {
			continue
		}
		if matched && found != kw.status {
			return "", false
		}
		found = kw.status
		matched = true
	}
	return found, matched
}

func (c *Controller) handleStatus(ctx context.Context, session *Session, input string) (string, error) {
	ids, reply, err := c.resolveReferences(ctx, session, input)
	if err != nil {
		return "", err
	}
	if reply != "" {
		session.State = StateMenu
		return reply, nil
	}

	updates, err := c.statusUpdates(ctx, ids, input)
	if err != nil {
		return "", err
	}
	if len(updates) == 0 {
		session.State = StateMenu
		return "I couldn't tell which status you want. Try \"done\", \"pending\", \"on work\", or \"over deadline\".", nil
	}

	outcomes := c.manager.UpdateStatuses(ctx, updates)
	session.State = StateMenu

	var b strings.Builder
	for i, o := range outcomes {
		if o.OK() {
			task, err := c.store.Get(ctx, o.ID)
			if err == nil {
				fmt.Fprintf(&b, "Marked %q as %s.\n", task.Description, updates[i].Status)
				continue
			}
			fmt.Fprintf(&b, "Marked %s as %s.\n", o.ID, updates[i].Status)
		} else {
			fmt.Fprintf(&b, "Could not update %s: %v.\n", o.ID, o.Err)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// statusUpdates decides the target status per resolved task: a single
// lexical status applies to all of them, otherwise the model assigns one
// per task.
func (c *Controller) statusUpdates(ctx context.Context, ids []string, input string) ([]taskops.StatusUpdate, error) {
	if status, ok := lexicalStatus(input); ok {
		updates := make([]taskops.StatusUpdate, 0, len(ids))
		for _, id := range ids {
			updates = append(updates, taskops.StatusUpdate{ID: id, Status: status})
		}
		return updates, nil
	}

	var candidates strings.Builder
	for _, id := range ids {
		task, err := c.store.Get(ctx, id)
		if err != nil {
			continue
		}
		fmt.Fprintf(&candidates, "%s | %s | %s\n", task.ID, task.Description, task.Status)
	}
	prompt := fmt.Sprintf("Candidate tasks:\n%s\nUser request: %s", candidates.String(), input)

	var raw string
	err := llm.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		raw, err = c.completer.Complete(ctx, statusSystemPrompt, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("infer status updates: %w", err)
	}

	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, nil
	}
	var parsed struct {
		UpdatedTasks []struct {
			ID        string `json:"id"`
			NewStatus string `json:"new_status"`
		} `json:"updated_tasks"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, nil
	}

	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	var updates []taskops.StatusUpdate
	for _, u := range parsed.UpdatedTasks {
		status := models.TaskStatus(u.NewStatus)
		if !allowed[u.ID] || !status.Valid() {
			continue
		}
		updates = append(updates, taskops.StatusUpdate{ID: u.ID, Status: status})
	}
	return updates, nil
}

func (c *Controller) handleDelete(ctx context.Context, session *Session, input string) (string, error) {
	ids, reply, err := c.resolveReferences(ctx, session, input)
	if err != nil {
		return "", err
	}
	if reply != "" {
		session.State = StateMenu
		return reply, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "About to delete %d task(s):\n", len(ids))
	for _, id := range ids {
		if task, err := c.store.Get(ctx, id); err == nil {
			fmt.Fprintf(&b, "  - %s\n", task.Description)
		} else {
			fmt.Fprintf(&b, "  - %s\n", id)
		}
	}
	b.WriteString("Are you sure? (yes/no)")

	session.PendingDeletion = ids
	session.State = StateConfirmDelete
	return b.String(), nil
}

func (c *Controller) handleComment(ctx context.Context, session *Session) (string, error) {
	session.State = StateMenu

	now := c.now()
	near, err := c.resolver.Near(ctx, now, c.commentRadius)
	if err != nil {
		return "", fmt.Errorf("find nearby tasks: %w", err)
	}
	if len(near) == 0 {
		return fmt.Sprintf("Nothing is scheduled within %s of now.", c.commentRadius), nil
	}

	var lines strings.Builder
	for _, task := range near {
		fmt.Fprintf(&lines, "%s (%s) [%s]\n", task.Description, task.Scheduled(), task.Status)
	}
	prompt := fmt.Sprintf("Current time: %s\nTasks near now:\n%s", now.Format("2006-01-02 15:04"), lines.String())

	var comment string
	err = llm.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		comment, err = c.completer.Complete(ctx, commentSystemPrompt, prompt)
		return err
	})
	if err != nil {
		// The listing alone is still useful.
		return "Around now:\n" + strings.TrimRight(lines.String(), "\n"), nil
	}
	return strings.TrimSpace(comment), nil
}

func (c *Controller) handleGeneral(ctx context.Context, input string) (string, error) {
	var reply string
	err := llm.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		reply, err = c.completer.Complete(ctx, generalSystemPrompt, input)
		return err
	})
	if err != nil {
		return "I can create, list, update, and delete tasks. Say \"menu\" for details.", nil
	}
	return strings.TrimSpace(reply), nil
}

func scheduleSuffix(task *models.Task) string {
	if s := task.Scheduled(); s != "" {
		return " (" + s + ")"
	}
	return ""
}

func plainListing(tasks []*models.Task) string {
	var b strings.Builder
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. %s%s [%s]\n", i+1, task.Description, scheduleSuffix(task), task.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}
