package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger is an in-process payment rail holding one balance per principal.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	settled  map[string]*domain.Payment // forwarded and not yet reversed
	logger   *logger.Logger
}

func NewLedger(log *logger.Logger) *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		settled:  make(map[string]*domain.Payment),
		logger:   log.Named("SettlementLedger"),
	}
}

// Deposit credits amount to principal and returns the new balance.
func (l *Ledger) Deposit(_ context.Context, principal string, amount int64) (int64, error) {
	if principal == "" {
		return 0, fmt.Errorf("%w: principal is required", domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit must be positive", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[principal] += amount
	l.logger.Info("Deposit credited", zap.String("principal", principal), zap.Int64("amount", amount))
	return l.balances[principal], nil
}

func (l *Ledger) Balance(_ context.Context, principal string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[principal]
}

// Forward debits from and credits to with the whole amount.
func (l *Ledger) Forward(_ context.Context, from, to string, amount int64) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment must be positive", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		l.logger.Warn("Payment rejected, insufficient funds",
			zap.String("from", from), zap.Int64("balance", l.balances[from]), zap.Int64("amount", amount))
		return nil, fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, from, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount

	p := &domain.Payment{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	l.settled[p.ID] = p
	l.logger.Debug("Payment forwarded", zap.String("payment_id", p.ID), zap.String("from", from), zap.String("to", to), zap.Int64("amount", amount))
	return p, nil
}

// Reverse moves a forwarded payment back to its payer. Each payment can be reversed once.
func (l *Ledger) Reverse(_ context.Context, payment *domain.Payment) error {
	if payment == nil {
		return fmt.Errorf("%w: payment is required", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.settled[payment.ID]
	if !ok {
		return fmt.Errorf("%w: payment %s is unknown or already reversed", domain.ErrNotFound, payment.ID)
	}
	delete(l.settled, p.ID)
	l.balances[p.To] -= p.Amount
	l.balances[p.From] += p.Amount
	l.logger.Info("Payment reversed", zap.String("payment_id", p.ID), zap.Int64("amount", p.Amount))
	return nil
}
