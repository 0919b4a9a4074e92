package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/events"
	"github.com/eaarma/tour-site-sub000/internal/repository"
	"github.com/eaarma/tour-site-sub000/internal/stripepay"
	"github.com/eaarma/tour-site-sub000/pkg/mq"
)

// ProviderClient is the outbound half of the settlement gateway.
type ProviderClient interface {
	CreateIntent(ctx context.Context, p stripepay.IntentParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type SettlementSvc struct {
	db       *gorm.DB
	orders   *repository.OrderRepo
	payments *repository.PaymentRepo
	provider ProviderClient
	pub      *mq.Publisher
}

func NewSettlementSvc(
	db *gorm.DB,
	orders *repository.OrderRepo,
	payments *repository.PaymentRepo,
	provider ProviderClient,
	pub *mq.Publisher,
) *SettlementSvc {
	return &SettlementSvc{db: db, orders: orders, payments: payments, provider: provider, pub: pub}
}

// minorUnits converts a major-unit amount to the provider's integer minor
// units, rounding half up.
func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateOrRetrieveIntent returns the client secret the customer completes
// payment with. An existing provider intent is reused so client retries
// never produce duplicates; if retrieval fails a fresh intent is created
// (the idempotency key makes even that safe).
func (s *SettlementSvc) CreateOrRetrieveIntent(ctx context.Context, orderID string) (string, error) {
	o, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status != domain.OrderReserved {
		return "", fmt.Errorf("%w: order is %s", domain.ErrOrderNotPayable, o.Status)
	}
	p, err := s.payments.ByOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	if p.ProviderPaymentID != "" {
		pi, err := s.provider.RetrieveIntent(ctx, p.ProviderPaymentID)
		if err == nil {
			return pi.ClientSecret, nil
		}
		log.Printf("[settlement] retrieve intent %s failed, creating new: %v", p.ProviderPaymentID, err)
	}

	pi, err := s.provider.CreateIntent(ctx, stripepay.IntentParams{
		OrderID:   o.ID,
		PaymentID: p.ID,
		Amount:    minorUnits(p.AmountTotal),
		Currency:  p.Currency,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	if err := s.payments.SetProviderRef(ctx, p, pi.ID); err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

// ProviderEvent is the normalized inbound webhook event.
type ProviderEvent struct {
	ID        string
	Type      string
	PaymentID string
}

const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
)

// NormalizeEvent extracts what settlement needs from a verified Stripe
// event. A payment-intent event without the internal paymentId metadata is
// unprocessable: there is no way to locate the affected payment.
func NormalizeEvent(evt stripe.Event) (ProviderEvent, error) {
	pe := ProviderEvent{ID: evt.ID, Type: string(evt.Type)}
	switch pe.Type {
	case eventPaymentSucceeded, eventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			return pe, fmt.Errorf("%w: %v", domain.ErrMissingEventMetadata, err)
		}
		pe.PaymentID = intent.Metadata["paymentId"]
		if pe.PaymentID == "" {
			return pe, domain.ErrMissingEventMetadata
		}
	}
	return pe, nil
}

// HandleEvent applies a verified provider event exactly once. The domain
// transition, the payment update and the idempotency-ledger insert share
// one transaction, so a crash between them cannot leave the ledger out of
// sync with the order.
func (s *SettlementSvc) HandleEvent(ctx context.Context, ev ProviderEvent) error {
	switch ev.Type {
	case eventPaymentSucceeded:
		return s.settle(ctx, ev, true)
	case eventPaymentFailed:
		return s.settle(ctx, ev, false)
	default:
		log.Printf("[settlement] ignoring event type %s", ev.Type)
		return nil
	}
}

func (s *SettlementSvc) settle(ctx context.Context, ev ProviderEvent, succeeded bool) error {
	var paidOrder *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := s.payments.ProcessedTx(tx, ev.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		p, err := s.payments.ByIDTx(tx, ev.PaymentID)
		if err != nil {
			// A verified event naming a payment we do not have can never
			// become processable; acknowledge so the provider stops
			// redelivering. No ledger row: there is nothing to attribute
			// the event to.
			if errors.Is(err, domain.ErrPaymentNotFound) {
				log.Printf("[settlement] event %s names unknown payment %s, dropping", ev.ID, ev.PaymentID)
				return nil
			}
			return err
		}
		if succeeded {
			o, err := s.orders.MarkPaidTx(tx, p.OrderID)
			if err != nil {
				// The expiry sweep (or an explicit cancel) won the race:
				// the order is terminal and can no longer be paid. The
				// event is permanently unprocessable, so record it and
				// acknowledge instead of inviting endless redelivery.
				if errors.Is(err, domain.ErrStateConflict) || errors.Is(err, domain.ErrOrderNotFound) {
					log.Printf("[settlement] event %s cannot settle payment %s: %v", ev.ID, ev.PaymentID, err)
				} else {
					return err
				}
			} else {
				paidOrder = o
			}
		} else {
			// Releases capacity at most once: the transition is a no-op
			// when the expiry sweep already terminated the order.
			if _, _, err := s.orders.TerminateTx(tx, p.OrderID, domain.OrderFailed); err != nil {
				return err
			}
		}
		rec := &domain.ProcessedEvent{
			ProviderEventID: ev.ID,
			EventType:       ev.Type,
			PaymentID:       ev.PaymentID,
		}
		if err := s.payments.RecordEventTx(tx, rec); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// A concurrent delivery won the insert race; its effects
				// are the ones that count.
				paidOrder = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if paidOrder != nil {
		s.notifyPaid(ctx, paidOrder)
	}
	return nil
}

func (s *SettlementSvc) notifyPaid(ctx context.Context, o *domain.Order) {
	var amount, currency string
	if p, err := s.payments.ByOrder(ctx, o.ID); err == nil {
		amount, currency = p.AmountTotal.StringFixed(2), p.Currency
	}
	evt := events.OrderPaid{
		OrderID:  o.ID,
		Email:    o.ContactEmail,
		Name:     o.ContactName,
		Amount:   amount,
		Currency: currency,
	}
	if err := s.pub.PublishJSON(ctx, events.RKOrderPaid, evt); err != nil {
		log.Printf("[settlement] publish %s: %v", events.RKOrderPaid, err)
	}
}
