// Package bot serves the computed opportunity list over Telegram. It is a
// pure reader: every command and button press resolves against the latest
// published cache snapshot, never triggering a recomputation.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/cache"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/config"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/engine"
)

// maxButtons caps the inline keyboard; Telegram rejects larger markups.
const maxButtons = 100

// Bot handles Telegram updates via long polling.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    config.TelegramConfig
	cache  *cache.OpportunityCache
	engine *engine.Engine
	logger *slog.Logger
}

// New creates a Bot on an already authorized API client.
func New(api *tgbotapi.BotAPI, cfg config.TelegramConfig, store *cache.OpportunityCache, eng *engine.Engine, logger *slog.Logger) *Bot {
	return &Bot{
		api:    api,
		cfg:    cfg,
		cache:  store,
		engine: eng,
		logger: logger.With(slog.String("component", "bot")),
	}
}

// Run registers the command menu and processes updates until ctx is
// cancelled. Handlers run inline: they only read the cache and send, so
// there is nothing worth parallelizing.
func (b *Bot) Run(ctx context.Context) error {
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("update loop started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("update loop stopped")
			return ctx.Err()
		case update := <-updates:
			switch {
			case update.Message != nil:
				b.handleMessage(update.Message)
			case update.CallbackQuery != nil:
				b.handleCallback(update.CallbackQuery)
			}
		}
	}
}

// registerCommands publishes the command menu shown in the Telegram client.
func (b *Bot) registerCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "spreads", Description: "List current arbitrage opportunities"},
		tgbotapi.BotCommand{Command: "help", Description: "How this bot works"},
	)
	if _, err := b.api.Request(cmds); err != nil {
		b.logger.Warn("set command menu failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !b.cfg.ChatAllowed(msg.Chat.ID) {
		b.logger.Debug("message from disallowed chat",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", domain.ErrUnauthorized.Error()),
		)
		return
	}
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.sendText(msg.Chat.ID, helpText)
	case "spreads":
		b.cmdSpreads(msg.Chat.ID)
	default:
		b.sendText(msg.Chat.ID, "Unknown command. Try /spreads.")
	}
}

const helpText = `This bot watches Binance/Bybit spot prices against BestChange peer rates and lists two-leg arbitrage paths for a fixed USDT volume.

/spreads — current opportunities, best first. Tap one for the full trade path.`

// cmdSpreads sends the summary with one inline button per opportunity. A
// button press resolves back through the opportunity id, so a refresh between
// the press and the send may make it stale.
func (b *Bot) cmdSpreads(chatID int64) {
	opportunities := b.cache.List()

	msg := tgbotapi.NewMessage(chatID, summaryText(len(opportunities), b.cache.RefreshedAt()))
	if len(opportunities) > 0 {
		shown := opportunities
		if len(shown) > maxButtons {
			shown = shown[:maxButtons]
		}
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(shown))
		for _, opp := range shown {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.buttonLabel(opp), opp.ID),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send spreads failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack failed", slog.String("error", err.Error()))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.cfg.ChatAllowed(chatID) {
		return
	}

	opp, err := b.cache.Get(cb.Data)
	if errors.Is(err, domain.ErrNotFound) {
		b.sendText(chatID, "This opportunity is no longer available. Run /spreads for a fresh list.")
		return
	}
	if err != nil {
		b.logger.Error("callback lookup failed",
			slog.String("id", cb.Data),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := tgbotapi.NewMessage(chatID, opportunityText(opp))
	// The trade path embeds exchange links; a preview would bury the numbers.
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send trade path failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// buttonLabel renders one keyboard entry: pair, peer exchange, and the
// configured ranking metric.
func (b *Bot) buttonLabel(opp domain.Opportunity) string {
	return fmt.Sprintf("%s: %s | %s", opp.PairKey, opp.PeerExchange, b.engine.MetricLabel(opp))
}

// summaryText heads the /spreads reply.
func summaryText(count int, refreshedAt time.Time) string {
	if refreshedAt.IsZero() {
		return "No data yet, the first refresh is still running. Try again in a minute."
	}
	return fmt.Sprintf("Found arbitrage deals: %d.\nUpdated %s ago.",
		count, time.Since(refreshedAt).Round(time.Second))
}

// opportunityText renders the full drill-down message for one opportunity.
func opportunityText(opp domain.Opportunity) string {
	return fmt.Sprintf("Pair: %s\n\n%s\n💰 Spread: %.2f%%\nTotal: %.2f USDT",
		opp.PairKey, opp.TradePath, opp.Spread, opp.Total)
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("send failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
