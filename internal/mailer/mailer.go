package mailer

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SaleNotifier mails a notice for every completed purchase. Other events are ignored.
type SaleNotifier struct {
	sender Sender
	from   string
	to     string
	logger *logger.Logger
}

func NewSaleNotifier(host string, port int, username, password, from, to string, log *logger.Logger) *SaleNotifier {
	return newSaleNotifier(gomail.NewDialer(host, port, username, password), from, to, log)
}

func newSaleNotifier(sender Sender, from, to string, log *logger.Logger) *SaleNotifier {
	return &SaleNotifier{sender: sender, from: from, to: to, logger: log.Named("SaleNotifier")}
}

func (n *SaleNotifier) Append(_ context.Context, event domain.Event) error {
	if event.Type != domain.EventBought {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("Sale: %s/%s", event.Collection, event.AssetID))
	m.SetBody("text/plain", fmt.Sprintf(
		"%s bought %d unit(s) of %s/%s (%s) from %s at %d per unit.\nEvent: %s",
		event.Buyer, event.Amount, event.Collection, event.AssetID, event.AssetKind, event.Seller, event.UnitPrice, event.ID))

	if err := n.sender.DialAndSend(m); err != nil {
		n.logger.Error("Failed to send sale notification", zap.String("event_id", event.ID), zap.Error(err))
		return fmt.Errorf("failed to send sale notification: %w", err)
	}
	n.logger.Info("Sale notification sent", zap.String("event_id", event.ID), zap.String("to", n.to))
	return nil
}
