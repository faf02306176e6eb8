// Package bot is the Telegram side of tickerbot: long polling, the ticker
// commands and the tick callback that jobs run.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/crystaldolphin/tickerbot/internal/config"
	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 4000

// Bot implements the Telegram bot via long polling.
type Bot struct {
	cfg    config.TelegramConfig
	jobs   config.JobsConfig
	queue  *jobqueue.Queue
	access allowList
	api    *tgbotapi.BotAPI

	// tickerMu serializes commands that read and change the job list, since
	// updates are handled on their own goroutines.
	tickerMu sync.Mutex

	// out delivers replies; it is the bot itself outside tests.
	out      jobqueue.Sender
	interval func() int
}

// New creates a Bot. Call Connect before Run or Send.
func New(cfg *config.Config, q *jobqueue.Queue) *Bot {
	b := &Bot{
		cfg:    cfg.Telegram,
		jobs:   cfg.Jobs,
		queue:  q,
		access: allowList(cfg.Telegram.AllowFrom),
	}
	b.out = b
	b.interval = randomSeconds(cfg.Jobs.MinInterval, cfg.Jobs.MaxInterval)
	return b
}

// Connect authenticates against the Bot API.
func (b *Bot) Connect() error {
	if b.cfg.Token == "" {
		return config.ErrNoToken
	}
	api, err := tgbotapi.NewBotAPI(b.cfg.Token)
	if err != nil {
		return errors.Wrap(err, "telegram: create bot")
	}
	b.api = api
	slog.Info("telegram: connected", "username", api.Self.UserName)
	return nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram: bot not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)
	slog.Info("telegram: polling started")

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	if !b.access.allows(senderID) {
		slog.Warn("telegram: access denied", "sender", senderID)
		return
	}

	cmd := Command{
		Name:   msg.Command(),
		Args:   strings.TrimSpace(msg.CommandArguments()),
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
	}
	if err := b.HandleCommand(ctx, cmd); err != nil {
		slog.Error("telegram: command failed", "command", cmd.Name, "chat", cmd.ChatID, "err", err)
	}
}

// Send delivers text to a chat, split into chunks Telegram accepts.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	if b.api == nil {
		return errors.New("telegram: bot not running")
	}
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return errors.Wrapf(err, "telegram: send to %d", chatID)
		}
	}
	return nil
}
