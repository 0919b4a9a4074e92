package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/repository"
)

// Catalog supplies tour price, title and shop id at reservation time. The
// reservation path freezes what it reads into the item snapshot.
type Catalog interface {
	TourByID(ctx context.Context, id string) (*domain.Tour, error)
}

type ReservationSvc struct {
	orders    *repository.OrderRepo
	schedules *repository.ScheduleRepo
	catalog   Catalog

	ttl          time.Duration
	platformRate decimal.Decimal
	currency     string
}

func NewReservationSvc(
	orders *repository.OrderRepo,
	schedules *repository.ScheduleRepo,
	catalog Catalog,
	ttl time.Duration,
	platformRate float64,
	currency string,
) *ReservationSvc {
	return &ReservationSvc{
		orders:       orders,
		schedules:    schedules,
		catalog:      catalog,
		ttl:          ttl,
		platformRate: decimal.NewFromFloat(platformRate),
		currency:     currency,
	}
}

type ReservationItemInput struct {
	ScheduleID   string
	Participants int
}

type ContactInput struct {
	Name        string
	Email       string
	Phone       string
	Nationality string
}

type CreateReservationInput struct {
	UserID        *string // nil for guest checkout
	Items         []ReservationItemInput
	Contact       ContactInput
	PaymentMethod string
}

// Create reserves capacity for every item and persists the order, items and
// payment as one atomic unit. On success the order is RESERVED with a
// countdown; the caller then requests a payment intent before it runs out.
func (s *ReservationSvc) Create(ctx context.Context, in CreateReservationInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item required", domain.ErrInvalidInput)
	}
	if in.Contact.Email == "" || in.Contact.Name == "" {
		return nil, fmt.Errorf("%w: contact name and email required", domain.ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.Participants <= 0 {
			return nil, fmt.Errorf("%w: participants must be positive", domain.ErrInvalidInput)
		}
	}

	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	total := decimal.Zero

	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		sched, err := s.schedules.ByID(ctx, it.ScheduleID)
		if err != nil {
			return nil, err
		}
		tour, err := s.catalog.TourByID(ctx, sched.TourID)
		if err != nil {
			return nil, err
		}
		price := tour.Price.Mul(decimal.NewFromInt(int64(it.Participants)))
		total = total.Add(price)
		items = append(items, domain.OrderItem{
			ScheduleID:   sched.ID,
			TourID:       tour.ID,
			ShopID:       tour.ShopID,
			TourTitle:    tour.Title,
			Participants: it.Participants,
			PricePaid:    price,
			Status:       domain.OrderReserved,
			Snapshot: domain.TourSnapshot{
				Version:    domain.TourSnapshotVersion,
				TourID:     tour.ID,
				ShopID:     tour.ShopID,
				Title:      tour.Title,
				Price:      tour.Price,
				CapturedAt: now,
			},
		})
	}

	fee := total.Mul(s.platformRate).Round(2)
	order := &domain.Order{
		UserID:           in.UserID,
		Status:           domain.OrderReserved,
		ReservationToken: uuid.NewString(),
		ContactName:      in.Contact.Name,
		ContactEmail:     in.Contact.Email,
		ContactPhone:     in.Contact.Phone,
		Nationality:      in.Contact.Nationality,
		PaymentMethod:    in.PaymentMethod,
		TotalPrice:       total,
		ExpiresAt:        &expires,
		Items:            items,
	}
	payment := &domain.Payment{
		AmountTotal: total,
		PlatformFee: fee,
		ShopAmount:  total.Sub(fee),
		Currency:    s.currency,
		Status:      domain.PaymentPending,
	}
	if err := s.orders.CreateReservation(ctx, order, payment); err != nil {
		return nil, err
	}
	order.Payment = payment
	return order, nil
}

// Cancel is the customer-facing explicit cancellation. An order already in
// a terminal state is returned as-is: the duplicate trigger is benign.
func (s *ReservationSvc) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	o, _, err := s.orders.Terminate(ctx, orderID, domain.OrderCancelled)
	return o, err
}

func (s *ReservationSvc) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.ByID(ctx, orderID)
}

func (s *ReservationSvc) GetByToken(ctx context.Context, token string) (*domain.Order, error) {
	return s.orders.ByToken(ctx, token)
}

func (s *ReservationSvc) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Refund marks a paid order refunded. Money movement at the provider is
// handled out of band; capacity is never returned for refunds.
func (s *ReservationSvc) Refund(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.Refund(ctx, orderID)
}

func (s *ReservationSvc) CancelItem(ctx context.Context, orderID, itemID string) (*domain.OrderItem, error) {
	return s.orders.CancelItem(ctx, orderID, itemID)
}

func (s *ReservationSvc) AssignManager(ctx context.Context, orderID, itemID, managerID string) (*domain.OrderItem, error) {
	return s.orders.AssignManager(ctx, orderID, itemID, managerID)
}
