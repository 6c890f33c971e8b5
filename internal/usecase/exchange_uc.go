package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("marketplace-service/exchange")

func nowUTC() time.Time { return time.Now().UTC() }

// ExchangeUsecase runs the listing lifecycle: list, cancel, update price and purchase.
//
// Every mutation holds the lock of its listing key while its store transaction runs.
// Purchases and price updates also hold an engine-wide guard, so a mutating call made while
// one of them is in flight is rejected instead of queued. Purchases commit the listing change
// before paying the seller and moving the asset, and roll it back if either of those fails.
// Events are appended once the locks are released.
type ExchangeUsecase struct {
	store      domain.ListingStore
	cache      domain.ListingCache // optional
	assets     domain.AssetResolver
	settlement domain.Settlement
	gate       domain.AccessGate
	events     domain.EventLog
	operator   string // principal the marketplace acts as when moving assets
	locks      keyLocks
	gens       keyGenerations
	guard      callGuard
	logger     *logger.Logger
}

// NewExchangeUsecase creates a new ExchangeUsecase. cache may be nil.
func NewExchangeUsecase(
	store domain.ListingStore,
	cache domain.ListingCache,
	assets domain.AssetResolver,
	settlement domain.Settlement,
	gate domain.AccessGate,
	events domain.EventLog,
	operator string,
	log *logger.Logger,
) *ExchangeUsecase {
	return &ExchangeUsecase{
		store:      store,
		cache:      cache,
		assets:     assets,
		settlement: settlement,
		gate:       gate,
		events:     events,
		operator:   operator,
		logger:     log.Named("ExchangeUsecase"),
	}
}

// ListInput holds the terms of a new listing.
type ListInput struct {
	Seller     string
	Collection string
	AssetID    string
	AssetKind  domain.AssetKind
	Amount     int64
	UnitPrice  int64
}

// PurchaseInput describes a purchase. Payment is the full value tendered by the buyer.
type PurchaseInput struct {
	Buyer      string
	Recipient  string // defaults to Buyer
	Collection string
	AssetID    string
	Amount     int64
	Payment    int64
}

// PurchaseResult reports what a successful purchase did.
type PurchaseResult struct {
	Listing         *domain.Listing // terms at the time of purchase
	Amount          int64
	RemainingAmount int64
	Payment         *domain.Payment
}

// admit runs the checks shared by every mutating operation.
func (uc *ExchangeUsecase) admit(ctx context.Context, op string) error {
	if isInFlight(ctx) || uc.guard.held() {
		uc.logger.Warn("Rejected call during an in-flight purchase or price update", zap.String("op", op))
		return domain.ErrReentrantCall
	}
	if uc.gate.IsPaused() {
		return domain.ErrPaused
	}
	return nil
}

func (uc *ExchangeUsecase) getListed(ctx context.Context, key domain.ListingKey) (*domain.Listing, error) {
	l, err := uc.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotListed
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRepository, err)
	}
	return l, nil
}

// withKey runs fn holding the mutation lock of key.
func (uc *ExchangeUsecase) withKey(key domain.ListingKey, fn func() error) error {
	unlock := uc.locks.lock(key)
	defer unlock()
	return fn()
}

// guarded runs fn as the single in-flight purchase or price update, holding the lock of key.
func (uc *ExchangeUsecase) guarded(ctx context.Context, op string, key domain.ListingKey, fn func(ctx context.Context) error) error {
	exit, ok := uc.guard.enter()
	if !ok {
		uc.logger.Warn("Rejected call during an in-flight purchase or price update", zap.String("op", op))
		return domain.ErrReentrantCall
	}
	defer exit()
	return uc.withKey(key, func() error { return fn(markInFlight(ctx)) })
}

// checkHolds re-verifies live that caller holds the listed asset. Holding it is all cancel
// and price updates require, so whoever holds an orphaned listing's asset can clear it.
func (uc *ExchangeUsecase) checkHolds(ctx context.Context, l *domain.Listing, caller string) error {
	authority, err := uc.assets.Authority(l.AssetKind)
	if err != nil {
		return err
	}
	holds, err := authority.CheckHolds(ctx, caller, l.Collection, l.AssetID, 1)
	if err != nil {
		return fmt.Errorf("asset authority check failed: %w", err)
	}
	if !holds {
		return domain.ErrNotOwner
	}
	return nil
}

// List creates a listing for an asset the seller holds and has approved the marketplace to move.
func (uc *ExchangeUsecase) List(ctx context.Context, in ListInput) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ExchangeUsecase.List", trace.WithAttributes(
		attribute.String("collection", in.Collection), attribute.String("asset_id", in.AssetID)))
	defer span.End()

	uc.logger.Info("Listing asset",
		zap.String("seller", in.Seller),
		zap.String("collection", in.Collection),
		zap.String("asset_id", in.AssetID),
		zap.String("asset_kind", string(in.AssetKind)),
		zap.Int64("amount", in.Amount),
		zap.Int64("unit_price", in.UnitPrice))

	if err := uc.admit(ctx, "list"); err != nil {
		return nil, err
	}
	key := domain.ListingKey{Collection: in.Collection, AssetID: in.AssetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if in.Seller == "" {
		return nil, fmt.Errorf("%w: seller cannot be empty", domain.ErrInvalidInput)
	}
	authority, err := uc.assets.Authority(in.AssetKind)
	if err != nil {
		return nil, err
	}
	if in.UnitPrice <= 0 {
		return nil, domain.ErrPriceMustBeAboveZero
	}

	var listing *domain.Listing
	err = uc.withKey(key, func() error {
		return uc.store.WithinTx(ctx, func(txCtx context.Context) error {
			if _, err := uc.store.Get(txCtx, key); err == nil {
				return domain.ErrAlreadyListed
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %v", domain.ErrRepository, err)
			}

			qty := in.Amount
			if in.AssetKind == domain.AssetKindUnique {
				qty = 1
			}
			holds, err := authority.CheckHolds(txCtx, in.Seller, in.Collection, in.AssetID, qty)
			if err != nil {
				return fmt.Errorf("asset authority check failed: %w", err)
			}
			if !holds {
				return domain.ErrNotOwner
			}
			approved, err := authority.IsApproved(txCtx, in.Seller, uc.operator, in.Collection, in.AssetID)
			if err != nil {
				return fmt.Errorf("asset authority approval check failed: %w", err)
			}
			if !approved {
				return domain.ErrNotApprovedForMarketplace
			}

			listing, err = domain.NewListing(in.Seller, in.Collection, in.AssetID, in.AssetKind, qty, in.UnitPrice)
			if err != nil {
				return err
			}
			return uc.store.Put(txCtx, listing)
		})
	})
	if err != nil {
		uc.logger.Warn("List rejected", zap.String("key", key.String()), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	uc.invalidate(ctx, key)
	uc.emit(ctx, domain.NewListedEvent(listing))
	uc.logger.Info("Asset listed", zap.String("key", key.String()), zap.Int64("amount", listing.RemainingAmount))
	return listing, nil
}

// Cancel withdraws a listing. The caller must currently hold the asset.
func (uc *ExchangeUsecase) Cancel(ctx context.Context, caller, collection, assetID string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ExchangeUsecase.Cancel", trace.WithAttributes(
		attribute.String("collection", collection), attribute.String("asset_id", assetID)))
	defer span.End()

	uc.logger.Info("Canceling listing",
		zap.String("caller", caller),
		zap.String("collection", collection),
		zap.String("asset_id", assetID))

	if err := uc.admit(ctx, "cancel"); err != nil {
		return nil, err
	}
	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var canceled *domain.Listing
	err := uc.withKey(key, func() error {
		return uc.store.WithinTx(ctx, func(txCtx context.Context) error {
			l, err := uc.getListed(txCtx, key)
			if err != nil {
				return err
			}
			if err := uc.checkHolds(txCtx, l, caller); err != nil {
				return err
			}
			canceled = l
			return uc.store.Remove(txCtx, key)
		})
	})
	if err != nil {
		uc.logger.Warn("Cancel rejected", zap.String("key", key.String()), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	uc.invalidate(ctx, key)
	uc.emit(ctx, domain.NewCanceledEvent(canceled))
	uc.logger.Info("Listing canceled", zap.String("key", key.String()))
	return canceled, nil
}

// UpdatePrice changes only the unit price of a listing and re-announces it.
func (uc *ExchangeUsecase) UpdatePrice(ctx context.Context, caller, collection, assetID string, newPrice int64) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ExchangeUsecase.UpdatePrice", trace.WithAttributes(
		attribute.String("collection", collection), attribute.String("asset_id", assetID)))
	defer span.End()

	uc.logger.Info("Updating listing price",
		zap.String("caller", caller),
		zap.String("collection", collection),
		zap.String("asset_id", assetID),
		zap.Int64("new_price", newPrice))

	if err := uc.admit(ctx, "update_price"); err != nil {
		return nil, err
	}
	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Listing
	err := uc.guarded(ctx, "update_price", key, func(ctx context.Context) error {
		return uc.store.WithinTx(ctx, func(txCtx context.Context) error {
			l, err := uc.getListed(txCtx, key)
			if err != nil {
				return err
			}
			if newPrice <= 0 {
				return domain.ErrPriceMustBeAboveZero
			}
			if err := uc.checkHolds(txCtx, l, caller); err != nil {
				return err
			}
			l.UnitPrice = newPrice
			l.UpdatedAt = nowUTC()
			updated = l
			return uc.store.Put(txCtx, l)
		})
	})
	if err != nil {
		uc.logger.Warn("Price update rejected", zap.String("key", key.String()), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	uc.invalidate(ctx, key)
	uc.emit(ctx, domain.NewListedEvent(updated))
	uc.logger.Info("Listing price updated", zap.String("key", key.String()), zap.Int64("unit_price", newPrice))
	return updated, nil
}

// Purchase buys Amount units of a listing.
//
// The listing is decremented (or removed when sold out) before the whole tendered payment is
// forwarded to the seller and the asset is moved to the recipient. A failure in either of the
// last two steps reverses the payment and rolls the listing back.
func (uc *ExchangeUsecase) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	ctx, span := tracer.Start(ctx, "ExchangeUsecase.Purchase", trace.WithAttributes(
		attribute.String("collection", in.Collection), attribute.String("asset_id", in.AssetID)))
	defer span.End()

	uc.logger.Info("Purchasing listing",
		zap.String("buyer", in.Buyer),
		zap.String("recipient", in.Recipient),
		zap.String("collection", in.Collection),
		zap.String("asset_id", in.AssetID),
		zap.Int64("amount", in.Amount),
		zap.Int64("payment", in.Payment))

	if err := uc.admit(ctx, "purchase"); err != nil {
		return nil, err
	}
	key := domain.ListingKey{Collection: in.Collection, AssetID: in.AssetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if in.Buyer == "" {
		return nil, fmt.Errorf("%w: buyer cannot be empty", domain.ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	recipient := in.Recipient
	if recipient == "" {
		recipient = in.Buyer
	}

	var result *PurchaseResult
	err := uc.guarded(ctx, "purchase", key, func(ctx context.Context) error {
		err := uc.store.WithinTx(ctx, func(txCtx context.Context) error {
			l, err := uc.getListed(txCtx, key)
			if err != nil {
				return err
			}
			if in.Amount > l.RemainingAmount {
				return domain.ErrAmountGreaterThanListedAmount
			}
			total, err := domain.TotalPrice(l.UnitPrice, in.Amount)
			if err != nil {
				return err
			}
			if in.Payment < total {
				return domain.ErrPriceNotMet
			}
			authority, err := uc.assets.Authority(l.AssetKind)
			if err != nil {
				return err
			}

			// Effects first.
			remaining := l.RemainingAmount - in.Amount
			if remaining == 0 {
				err = uc.store.Remove(txCtx, key)
			} else {
				next := l.Clone()
				next.RemainingAmount = remaining
				next.UpdatedAt = nowUTC()
				err = uc.store.Put(txCtx, next)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrRepository, err)
			}

			// Then interactions.
			payment, err := uc.settlement.Forward(txCtx, in.Buyer, l.Seller, in.Payment)
			if err != nil {
				return fmt.Errorf("payment to seller failed: %w", err)
			}
			if err := authority.Transfer(txCtx, uc.operator, l.Seller, recipient, l.Collection, l.AssetID, in.Amount); err != nil {
				if rerr := uc.settlement.Reverse(txCtx, payment); rerr != nil {
					uc.logger.Error("Failed to reverse payment after asset transfer failure",
						zap.String("payment_id", payment.ID), zap.Error(rerr))
					return errors.Join(fmt.Errorf("asset transfer failed: %w", err), rerr)
				}
				return fmt.Errorf("asset transfer failed: %w", err)
			}

			result = &PurchaseResult{Listing: l, Amount: in.Amount, RemainingAmount: remaining, Payment: payment}
			return nil
		})
		if err != nil && result != nil {
			// The store failed to commit after value moved.
			uc.logger.Error("Purchase commit failed after settlement, reversing payment",
				zap.String("payment_id", result.Payment.ID), zap.Error(err))
			if rerr := uc.settlement.Reverse(ctx, result.Payment); rerr != nil {
				uc.logger.Error("Payment reversal failed, manual reconciliation required",
					zap.String("payment_id", result.Payment.ID), zap.Error(rerr))
			}
		}
		return err
	})
	if err != nil {
		uc.logger.Warn("Purchase rejected", zap.String("key", key.String()), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	uc.invalidate(ctx, key)
	uc.emit(ctx, domain.NewBoughtEvent(in.Buyer, result.Listing, in.Amount))
	uc.logger.Info("Purchase completed",
		zap.String("key", key.String()),
		zap.String("payment_id", result.Payment.ID),
		zap.Int64("remaining", result.RemainingAmount))
	return result, nil
}

// GetListing returns the active listing for an asset or domain.ErrNotListed. It never takes
// the mutation locks.
func (uc *ExchangeUsecase) GetListing(ctx context.Context, collection, assetID string) (*domain.Listing, error) {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.logger.Warn("Listing cache read failed", zap.String("key", key.String()), zap.Error(err))
		} else if cached != nil {
			uc.logger.Debug("Listing served from cache", zap.String("key", key.String()))
			return cached, nil
		}
	}

	gen := uc.gens.current(key)
	l, err := uc.getListed(ctx, key)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, l); err != nil {
			uc.logger.Warn("Listing cache write failed", zap.String("key", key.String()), zap.Error(err))
		} else if uc.gens.current(key) != gen {
			// a mutation committed while we read; the copy just cached may be stale
			uc.dropCached(ctx, key)
		}
	}
	return l, nil
}

// ListByCollection returns every active listing in a collection.
func (uc *ExchangeUsecase) ListByCollection(ctx context.Context, collection string) ([]*domain.Listing, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection cannot be empty", domain.ErrInvalidInput)
	}
	listings, err := uc.store.ListByCollection(ctx, collection)
	if err != nil {
		uc.logger.Error("Failed to list collection", zap.String("collection", collection), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrRepository, err)
	}
	return listings, nil
}

// invalidate runs after a mutation on key committed.
func (uc *ExchangeUsecase) invalidate(ctx context.Context, key domain.ListingKey) {
	uc.gens.bump(key)
	uc.dropCached(ctx, key)
}

func (uc *ExchangeUsecase) dropCached(ctx context.Context, key domain.ListingKey) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, key); err != nil {
		uc.logger.Warn("Failed to invalidate cached listing", zap.String("key", key.String()), zap.Error(err))
	}
}

// emit appends to the event log after the transition committed and its locks were released.
// Failures are logged only.
func (uc *ExchangeUsecase) emit(ctx context.Context, event domain.Event) {
	if err := uc.events.Append(ctx, event); err != nil {
		uc.logger.Warn("Failed to append event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
