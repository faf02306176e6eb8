package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
	"github.com/crystaldolphin/tickerbot/internal/symref"
)

// Command is a parsed slash command.
type Command struct {
	Name   string // without the leading slash
	Args   string
	ChatID int64
	UserID int64
}

const helpText = `/add_ticker - start a new ticker in this chat
/remove_ticker - stop the most recent ticker
/list_tickers - show running tickers`

// Tick is the callback every ticker job runs.
func Tick(ctx context.Context, c *jobqueue.CallbackContext) error {
	if c.Sender == nil {
		return errors.Newf("tick %s: no sender", c.Job.Name())
	}
	return c.Sender.Send(ctx, c.Job.ChatID(), "Tick from "+c.Job.Name())
}

// RegisterCallbacks makes the bot's job callbacks resolvable by reference.
func RegisterCallbacks(refs *symref.Registry[jobqueue.Callback]) {
	refs.Register(Tick)
}

// HandleCommand runs one slash command and replies in its chat.
func (b *Bot) HandleCommand(ctx context.Context, cmd Command) error {
	switch cmd.Name {
	case "add_ticker":
		return b.addTicker(ctx, cmd)
	case "remove_ticker":
		return b.removeTicker(ctx, cmd)
	case "list_tickers":
		return b.listTickers(ctx, cmd)
	case "start", "help":
		return b.out.Send(ctx, cmd.ChatID, helpText)
	}
	slog.Debug("telegram: ignoring command", "command", cmd.Name)
	return nil
}

func (b *Bot) addTicker(ctx context.Context, cmd Command) error {
	slog.Info("bot: starting ticker", "chat", cmd.ChatID)
	b.tickerMu.Lock()
	defer b.tickerMu.Unlock()

	// Names are for display only; after a removal a name can come back.
	num := len(b.queue.Jobs())
	seconds := b.interval()
	name := fmt.Sprintf("job-%d", num)
	msg := fmt.Sprintf("Scheduling %s every %d seconds", name, seconds)
	slog.Info("bot: " + msg)

	_, err := b.queue.RunRepeating(Tick, time.Duration(seconds)*time.Second, jobqueue.Options{
		Name:   name,
		ChatID: cmd.ChatID,
		UserID: cmd.UserID,
	})
	if err != nil {
		return err
	}
	return b.out.Send(ctx, cmd.ChatID, msg)
}

func (b *Bot) removeTicker(ctx context.Context, cmd Command) error {
	slog.Info("bot: stopping ticker", "chat", cmd.ChatID)
	b.tickerMu.Lock()
	defer b.tickerMu.Unlock()

	jobs := b.queue.Jobs()
	if len(jobs) == 0 {
		return b.out.Send(ctx, cmd.ChatID, "No tickers to remove")
	}
	job := jobs[len(jobs)-1]
	name := job.Name()
	if err := job.ScheduleRemoval(); err != nil {
		return err
	}
	msg := "Removed " + name
	slog.Info("bot: " + msg)
	return b.out.Send(ctx, cmd.ChatID, msg)
}

func (b *Bot) listTickers(ctx context.Context, cmd Command) error {
	jobs := b.queue.Jobs()
	if len(jobs) == 0 {
		return b.out.Send(ctx, cmd.ChatID, "No tickers running")
	}
	var sb strings.Builder
	for _, j := range jobs {
		trigger := j.Entry().State().Trigger.String()
		next := "paused"
		if t := j.NextRunTime(); t != nil {
			next = "next " + t.Format(time.TimeOnly)
		}
		fmt.Fprintf(&sb, "%s %s, %s\n", j.Name(), trigger, next)
	}
	return b.out.Send(ctx, cmd.ChatID, strings.TrimSuffix(sb.String(), "\n"))
}

// randomSeconds picks uniformly from [lo, hi].
func randomSeconds(lo, hi int) func() int {
	if hi < lo {
		hi = lo
	}
	return func() int { return lo + rand.IntN(hi-lo+1) }
}
