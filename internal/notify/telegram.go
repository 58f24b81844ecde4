package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"ingetin/internal/logging"
)

// ChatLinker is told about the username behind a chat that talked to the bot.
type ChatLinker interface {
	TouchTelegramUsername(ctx context.Context, chatID, username string) error
}

type TelegramOptions struct {
	Token       string
	WebhookURL  string
	SendTimeout time.Duration
	Linker      ChatLinker
	Log         *slog.Logger

	// ServerURL overrides the Bot API endpoint (tests).
	ServerURL string
}

// Telegram is both the reminder Sender and the bot answering /start and
// /ping.
type Telegram struct {
	bot        *bot.Bot
	webhookURL string
	timeout    time.Duration
	linker     ChatLinker
	log        *slog.Logger
}

func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	t := &Telegram{
		webhookURL: opts.WebhookURL,
		timeout:    opts.SendTimeout,
		linker:     opts.Linker,
		log:        logging.Or(opts.Log).With("component", "telegram"),
	}
	if t.timeout <= 0 {
		t.timeout = 10 * time.Second
	}

	botOpts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.ServerURL))
	}

	b, err := bot.New(opts.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, t.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/ping", bot.MatchTypeExact, t.handlePing)
	t.bot = b
	return t, nil
}

func (t *Telegram) Send(ctx context.Context, identity, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID(identity),
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		t.log.Warn("send message failed", "chat_id", identity, "err", err)
		return false
	}
	return true
}

// Run receives updates until ctx is done: through the webhook when a webhook
// URL is configured, by long polling otherwise.
func (t *Telegram) Run(ctx context.Context) {
	if t.webhookURL != "" {
		if _, err := t.bot.SetWebhook(ctx, &bot.SetWebhookParams{URL: t.webhookURL}); err != nil {
			t.log.Error("set webhook failed", "url", t.webhookURL, "err", err)
			return
		}
		t.log.Info("webhook mode", "url", t.webhookURL)
		t.bot.StartWebhook(ctx)
		return
	}

	t.log.Info("polling mode")
	t.bot.Start(ctx)
}

func (t *Telegram) UsesWebhook() bool { return t.webhookURL != "" }

func (t *Telegram) WebhookHandler() http.Handler { return t.bot.WebhookHandler() }

func (t *Telegram) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	id := update.Message.Chat.ID
	name, username := "", ""
	if from := update.Message.From; from != nil {
		name, username = from.FirstName, from.Username
	}

	text := fmt.Sprintf("Hi %s! 👋\nYour chat ID: %d\n\n"+
		"1) Open the Ingetin app and sign in\n"+
		"2) Link Telegram with the chat ID above\n"+
		"3) Reminders will then be delivered to this chat.", name, id)
	t.reply(ctx, b, id, text)

	if t.linker != nil && username != "" {
		if err := t.linker.TouchTelegramUsername(ctx, strconv.FormatInt(id, 10), username); err != nil {
			t.log.Warn("update telegram username failed", "chat_id", id, "err", err)
		}
	}
}

func (t *Telegram) handlePing(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	t.reply(ctx, b, update.Message.Chat.ID, "pong ✅")
}

func (t *Telegram) reply(ctx context.Context, b *bot.Bot, chat int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chat, Text: text}); err != nil {
		t.log.Warn("reply failed", "chat_id", chat, "err", err)
	}
}

func chatID(identity string) any {
	if n, err := strconv.ParseInt(identity, 10, 64); err == nil {
		return n
	}
	return identity
}
