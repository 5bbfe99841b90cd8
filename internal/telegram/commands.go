package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/core-coin/rota/internal/models"
)

const (
	CommandJobs    = "/jobs"
	CommandBacklog = "/backlog"
)

// JobStatusSource reports scheduler state.
type JobStatusSource interface {
	JobStatus() []models.JobStatus
}

// BacklogCounter counts won prizes nobody has fulfilled yet.
type BacklogCounter interface {
	CountUnfulfilledPrizesSince(ctx context.Context, since time.Time) (int64, error)
}

// Commands answers operator commands. Anyone not in Operators is ignored.
type Commands struct {
	operators *Operators
	jobs      JobStatusSource
	backlog   BacklogCounter
	window    time.Duration
	now       func() time.Time
}

func NewCommands(operators *Operators, jobs JobStatusSource, backlog BacklogCounter, window time.Duration) *Commands {
	return &Commands{
		operators: operators,
		jobs:      jobs,
		backlog:   backlog,
		window:    window,
		now:       time.Now,
	}
}

// Names lists the command prefixes handled.
func (c *Commands) Names() []string {
	return []string{CommandJobs, CommandBacklog}
}

// Reply returns the answer to text sent by userID, or false when the message
// must be ignored.
func (c *Commands) Reply(ctx context.Context, userID int64, text string) (string, bool) {
	if !c.operators.IsOperator(userID) {
		return "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	// "/jobs@rota_bot" in group chats
	command, _, _ := strings.Cut(fields[0], "@")

	switch command {
	case CommandJobs:
		return c.jobsReply(), true
	case CommandBacklog:
		return c.backlogReply(ctx), true
	}
	return "", false
}

func (c *Commands) jobsReply() string {
	statuses := c.jobs.JobStatus()
	if len(statuses) == 0 {
		return "No jobs registered"
	}
	var b strings.Builder
	for _, s := range statuses {
		last := "never"
		if !s.LastRunAt.IsZero() {
			last = s.LastRunAt.UTC().Format(time.RFC3339)
		}
		state := "idle"
		if s.IsRunning {
			state = "running"
		}
		fmt.Fprintf(&b, "%s (%s): %s, last run %s, %d runs", s.Name, s.Cadence, state, last, s.Runs)
		if s.LastError != "" {
			fmt.Fprintf(&b, ", last error: %s", firstLine(s.LastError))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) backlogReply(ctx context.Context) string {
	count, err := c.backlog.CountUnfulfilledPrizesSince(ctx, c.now().Add(-c.window))
	if err != nil {
		return "Failed to count unfulfilled prizes: " + err.Error()
	}
	return fmt.Sprintf("%d unfulfilled prizes in the last %s", count, c.window)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
