// Package telegram delivers channel messages through the Telegram Bot API
// and surfaces the /start command as an on-demand calendar check.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// longPollTimeout is the getUpdates long-poll window.
const longPollTimeout = 10 * time.Second

// channel adapts a raw chat identifier (numeric ID or @username) to
// telebot's Recipient interface.
type channel string

func (c channel) Recipient() string { return string(c) }

// Bot sends rendered notifications to one fixed channel and handles the
// /start command. It satisfies the Notifier interface in internal/notify.
type Bot struct {
	bot     *tele.Bot
	channel channel
	limiter *rate.Limiter
	logger  *slog.Logger

	onCheck func()
}

// New creates a Bot for the given token and destination channel.
// The limiter stays inside Telegram's per-chat message budget.
func New(token, channelID string, logger *slog.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, errors.New("telegram channel id is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: longPollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		channel: channel(channelID),
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		logger:  logger,
	}
	bot.registerHandlers()
	return bot, nil
}

// SetOnDemandCheck registers the callback run when /start is received.
// Must be called before Start.
func (b *Bot) SetOnDemandCheck(fn func()) { b.onCheck = fn }

// Send delivers one Markdown message to the configured channel. The context
// bounds the rate-limiter wait; telebot manages its own request timeout.
func (b *Bot) Send(ctx context.Context, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	_, err := b.bot.Send(b.channel, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	if err != nil {
		return fmt.Errorf("send to channel %s: %w", b.channel.Recipient(), err)
	}
	return nil
}

// Start begins long polling for commands. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.logger.Info("Telegram polling started", "channel", b.channel.Recipient())
	b.bot.Start() // blocks until Stop() is called
	b.logger.Info("Telegram polling stopped")
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", func(c tele.Context) error {
		name := "piloto"
		if s := c.Sender(); s != nil && s.FirstName != "" {
			name = s.FirstName
		}
		b.logger.Info("/start received, forcing calendar check", "from", name)

		if b.onCheck != nil {
			go b.onCheck()
		}
		return c.Send(greeting(name))
	})
}

// greeting is the /start reply confirming the bot is alive.
func greeting(firstName string) string {
	return fmt.Sprintf(
		"¡Hola, %s! Soy el bot de notificaciones de F1. Estoy activo y publicaré los avisos en el canal configurado.",
		firstName,
	)
}
