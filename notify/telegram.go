package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"realty-scanner/models"
	"realty-scanner/utils"
)

// Min interval between two messages to the same chat; Telegram answers 429
// above roughly 30 messages a minute.
const telegramSendInterval = 2 * time.Second

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes alerts to one chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	pacer  *utils.Pacer
	logger *utils.Logger
}

// NewTelegramNotifier connects to the bot API and checks the token.
func NewTelegramNotifier(token string, chatID int64, logger *utils.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	bot.Debug = false
	logger.Info("[telegram] Authorized as %s, chat %d", bot.Self.UserName, chatID)
	return newTelegramNotifier(bot, chatID, telegramSendInterval, logger), nil
}

func newTelegramNotifier(bot sender, chatID int64, interval time.Duration, logger *utils.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, pacer: utils.NewPacer(interval), logger: logger}
}

// Notify sends one message per alert. A failed send is logged and the rest
// are still attempted; the first error is returned.
func (n *TelegramNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	var firstErr error
	sent := 0
	for _, a := range alerts {
		if err := n.pacer.Wait(ctx); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(n.chatID, formatAlert(a))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Warn("[telegram] Send %s failed: %v", a.ID, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("telegram: send %s: %w", a.ID, err)
			}
			continue
		}
		sent++
	}
	n.logger.Info("[telegram] Sent %d/%d alerts", sent, len(alerts))
	return firstErr
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func formatAlert(a models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *%d* | %s\n", a.Score, markdownEscaper.Replace(a.Search))
	fmt.Fprintf(&b, "*%s* | %s\n", markdownEscaper.Replace(a.Price), markdownEscaper.Replace(a.Address))
	if a.Bedrooms > 0 || a.Bathrooms > 0 {
		fmt.Fprintf(&b, "%dbd/%dba", a.Bedrooms, a.Bathrooms)
		if a.Interior != "" {
			fmt.Fprintf(&b, " | %s", markdownEscaper.Replace(a.Interior))
		}
		b.WriteString("\n")
	}
	if a.Assessed > 0 && a.DiscountPct != nil {
		fmt.Fprintf(&b, "Assessed $%.0fk (%+.1f%%)\n", a.Assessed/1000, -*a.DiscountPct)
	}
	if a.Flags != "" {
		fmt.Fprintf(&b, "%s\n", markdownEscaper.Replace(a.Flags))
	}
	fmt.Fprintf(&b, "MLS %s | [View](%s)", markdownEscaper.Replace(a.ID), a.URL)
	return b.String()
}
