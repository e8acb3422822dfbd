package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"realty-scanner/models"
	"realty-scanner/utils"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	fail map[int]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.fail[len(f.sent)] {
		return tgbotapi.Message{}, errors.New("429 Too Many Requests")
	}
	return tgbotapi.Message{}, nil
}

func TestFormatAlert(t *testing.T) {
	d := 20.0
	got := formatAlert(models.Alert{
		Search: "walkout", ID: "A2101234", Score: 60, Price: "$400,000", Address: "12 Elm St_SW",
		Bedrooms: 3, Bathrooms: 2, Interior: "1250 sqft", Assessed: 500000, DiscountPct: &d,
		Flags: "🚪 WALKOUT", URL: "https://www.realtor.ca/real-estate/1",
	})

	for _, want := range []string{"*60* | walkout", `12 Elm St\_SW`, "3bd/2ba | 1250 sqft", "Assessed $500k (-20.0%)", "🚪 WALKOUT", "[View](https://www.realtor.ca/real-estate/1)"} {
		if !strings.Contains(got, want) {
			t.Errorf("message missing %q:\n%s", want, got)
		}
	}
}

func TestNotifyContinuesAfterFailure(t *testing.T) {
	bot := &fakeBot{fail: map[int]bool{1: true}}
	n := newTelegramNotifier(bot, 42, 0, utils.Discard())

	err := n.Notify(context.Background(), []models.Alert{{ID: "A"}, {ID: "B"}})
	if err == nil || !strings.Contains(err.Error(), "send A") {
		t.Errorf("err: got %v, want the first failure", err)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("sent: got %d, want 2", len(bot.sent))
	}
	if bot.sent[1].ChatID != 42 || bot.sent[1].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("unexpected message config: %+v", bot.sent[1])
	}
}
