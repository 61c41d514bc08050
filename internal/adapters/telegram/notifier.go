package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/internal/adapters/config"
	"github.com/selivandex/regime-watch/pkg/logger"
	"github.com/selivandex/regime-watch/pkg/models"
)

// Notifier delivers recommendations and transport alerts to a Telegram chat.
// It is the publication sink for the recommendation publisher.
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat_id is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{
		api: bot,
		cfg: cfg,
	}, nil
}

// Publish sends one message per recommendation record
func (n *Notifier) Publish(ctx context.Context, records []models.RecommendationRecord) error {
	if !n.cfg.AlertOnRegime {
		return nil
	}

	for _, rec := range records {
		if err := n.sendMarkdown(formatRecommendation(rec)); err != nil {
			logger.Warn("failed to send recommendation alert",
				zap.String("instrument", rec.Instrument),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// SendRegimeChange announces a regime transition without recommendations
func (n *Notifier) SendRegimeChange(t models.RegimeTransition) error {
	if !n.cfg.AlertOnRegime {
		return nil
	}

	msg := fmt.Sprintf("⚖️ *Market regime changed*\n`%s` → `%s`", t.From, t.To)
	return n.sendMarkdown(msg)
}

// SendDegraded reports sustained connectivity loss
func (n *Notifier) SendDegraded() error {
	if !n.cfg.AlertOnDegraded {
		return nil
	}

	return n.sendMarkdown("🔌 *Feed degraded*\nBoth the stream and polling paths are failing. Updates are stale until connectivity returns.")
}

func (n *Notifier) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func formatRecommendation(rec models.RecommendationRecord) string {
	var b strings.Builder

	emoji := "📈"
	switch rec.Direction {
	case models.DirectionShort, models.DirectionLongPut:
		emoji = "🛡"
	}

	fmt.Fprintf(&b, "%s *%s* (%s)\n", emoji, rec.Instrument, rec.Direction)
	fmt.Fprintf(&b, "Entry: `%s`  Target: `%s`  Stop: `%s`\n", rec.Entry, rec.Target, rec.StopLoss)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", rec.Confidence*100)

	if len(rec.Rationale) > 0 {
		b.WriteString("\n")
		for _, line := range rec.Rationale {
			fmt.Fprintf(&b, "• %s\n", line)
		}
	}

	return b.String()
}
