// Package container wires core tickerbot services using go.uber.org/dig.
package container

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/dig"

	"github.com/crystaldolphin/tickerbot/internal/bot"
	"github.com/crystaldolphin/tickerbot/internal/config"
	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
	"github.com/crystaldolphin/tickerbot/internal/persist"
	"github.com/crystaldolphin/tickerbot/internal/scheduler"
	"github.com/crystaldolphin/tickerbot/internal/symref"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	refs     *persist.Refs
	sched    *scheduler.Scheduler
	queue    *jobqueue.Queue
	store    *persist.Store
	listener *persist.Listener
	bot      *bot.Bot
}

func (c *Container) Config() *config.Config          { return c.cfg }
func (c *Container) Refs() *persist.Refs             { return c.refs }
func (c *Container) Scheduler() *scheduler.Scheduler { return c.sched }
func (c *Container) Queue() *jobqueue.Queue          { return c.queue }
func (c *Container) Store() *persist.Store           { return c.store }
func (c *Container) Listener() *persist.Listener     { return c.listener }
func (c *Container) Bot() *bot.Bot                   { return c.bot }

// New builds and wires all core services from cfg. Nothing is started and
// no network connection is made.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newRefs,
		newScheduler,
		newQueue,
		newStore,
		newListener,
		newBot,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, errors.Wrap(err, "container: provide")
		}
	}

	var result *Container
	err := d.Invoke(func(
		refs *persist.Refs,
		sched *scheduler.Scheduler,
		q *jobqueue.Queue,
		store *persist.Store,
		listener *persist.Listener,
		b *bot.Bot,
	) {
		result = &Container{
			cfg:      cfg,
			refs:     refs,
			sched:    sched,
			queue:    q,
			store:    store,
			listener: listener,
			bot:      b,
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "container: invoke")
	}
	return result, nil
}

func newRefs() *persist.Refs {
	refs := symref.NewRegistry[jobqueue.Callback]()
	bot.RegisterCallbacks(refs)
	return refs
}

func newScheduler(cfg *config.Config) (*scheduler.Scheduler, error) {
	loc := time.Local
	if tz := cfg.Jobs.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, errors.Wrapf(err, "load timezone %q", tz)
		}
		loc = l
	}
	return scheduler.New(loc), nil
}

// newQueue starts without a sender; newBot installs itself.
func newQueue(s *scheduler.Scheduler) *jobqueue.Queue {
	return jobqueue.New(s, nil)
}

func newStore(cfg *config.Config, refs *persist.Refs) *persist.Store {
	return persist.NewStore(cfg.JobsPath(), refs)
}

func newListener(store *persist.Store, q *jobqueue.Queue, s *scheduler.Scheduler) *persist.Listener {
	l := persist.NewListener(store, q.Jobs)
	l.Attach(s)
	return l
}

func newBot(cfg *config.Config, q *jobqueue.Queue) *bot.Bot {
	b := bot.New(cfg, q)
	q.SetSender(b)
	return b
}
