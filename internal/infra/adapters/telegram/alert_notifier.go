package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/infra/i18n"
	"webpay-checkout/internal/infra/metrics"
)

var _ adapter.IncidentNotifier = (*AlertNotifier)(nil)

// sender is the slice of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertNotifier posts reconciliation incidents to operator chats.
type AlertNotifier struct {
	bot     sender
	chatIDs []int64
	tr      *i18n.Translator
	log     *zerolog.Logger
}

func NewAlertNotifier(token string, chatIDs []int64, tr *i18n.Translator, logger *zerolog.Logger) (*AlertNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(chatIDs) == 0 {
		return nil, errors.New("no telegram chat ids configured")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newAlertNotifier(bot, chatIDs, tr, logger), nil
}

func newAlertNotifier(bot sender, chatIDs []int64, tr *i18n.Translator, logger *zerolog.Logger) *AlertNotifier {
	return &AlertNotifier{bot: bot, chatIDs: chatIDs, tr: tr, log: logger}
}

// Notify succeeds when at least one chat received the alert.
func (n *AlertNotifier) Notify(ctx context.Context, inc *model.Incident) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	text := FormatIncident(n.tr, inc)
	var sent int
	var errs []error
	for _, id := range n.chatIDs {
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Str("incident_id", inc.ID).Msg("telegram alert failed")
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		metrics.IncAlert("error")
		return fmt.Errorf("telegram alert: %w", errors.Join(errs...))
	}
	metrics.IncAlert("sent")
	return nil
}

// FormatIncident renders the plain-text alert body in the translator's language.
func FormatIncident(tr *i18n.Translator, inc *model.Incident) string {
	var b strings.Builder
	switch inc.Kind {
	case model.IncidentFailedPostPayment:
		b.WriteString(tr.T("alert.failed_post_payment"))
	case model.IncidentConfirmUnknown:
		b.WriteString(tr.T("alert.confirm_unknown"))
	default:
		b.WriteString(tr.T("alert.generic"))
	}
	b.WriteString("\n" + tr.T("alert.incident", inc.ID))
	if inc.BuyOrder != "" {
		b.WriteString("\n" + tr.T("alert.buy_order", inc.BuyOrder))
	}
	b.WriteString("\n" + tr.T("alert.amount", inc.Amount))
	if inc.Reason != "" {
		b.WriteString("\n" + tr.T("alert.reason", inc.Reason))
	}
	b.WriteString("\n" + tr.T("alert.since", inc.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST")))
	return b.String()
}
