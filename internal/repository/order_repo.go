package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

// OrderRepo owns the order lifecycle. Every transition runs in one
// transaction that locks the order row first; that lock is what serializes
// the expiry sweep against webhook settlement for the same order.
type OrderRepo struct {
	db        *gorm.DB
	schedules *ScheduleRepo
}

func NewOrderRepo(db *gorm.DB, schedules *ScheduleRepo) *OrderRepo {
	return &OrderRepo{db: db, schedules: schedules}
}

// CreateReservation persists the order, its items and its payment in the
// same transaction that debits schedule capacity. If any item fails the
// capacity check the whole attempt rolls back and nothing is persisted.
// Schedules are locked in ascending id order so two overlapping multi-item
// reservations cannot deadlock each other.
func (r *OrderRepo) CreateReservation(ctx context.Context, o *domain.Order, p *domain.Payment) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		o.Items[i].OrderID = o.ID
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.OrderID = o.ID

	order := make([]int, len(o.Items))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return o.Items[order[a]].ScheduleID < o.Items[order[b]].ScheduleID
	})

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, i := range order {
			it := &o.Items[i]
			if err := r.schedules.ReserveTx(tx, it.ScheduleID, it.Participants); err != nil {
				return err
			}
		}
		if err := tx.Omit("Payment").Create(o).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

func (r *OrderRepo) ByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payment").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) ByToken(ctx context.Context, token string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payment").
		First(&o, "reservation_token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// StaleReserved returns ids of RESERVED orders whose deadline has passed.
func (r *OrderRepo) StaleReserved(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", domain.OrderReserved, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func lockOrder(tx *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	if err := forUpdate(tx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if err := tx.Where("order_id = ?", o.ID).Order("schedule_id ASC").Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func setPaymentStatusTx(tx *gorm.DB, orderID string, status domain.PaymentStatus) error {
	return tx.Model(&domain.Payment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		}).Error
}

// MarkPaid runs RESERVED -> PAID: converts every still-reserved item's hold
// into a booking and settles the payment row, all in one transaction.
// An order already PAID is a duplicate trigger and a no-op; any other state
// can no longer be paid and surfaces ErrStateConflict.
func (r *OrderRepo) MarkPaid(ctx context.Context, orderID string) (*domain.Order, error) {
	var out *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.MarkPaidTx(tx, orderID)
		out = o
		return err
	})
	return out, err
}

func (r *OrderRepo) MarkPaidTx(tx *gorm.DB, orderID string) (*domain.Order, error) {
	o, err := lockOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.OrderPaid {
		return o, nil
	}
	if o.Status != domain.OrderReserved {
		return nil, domain.ErrStateConflict
	}
	for i := range o.Items {
		it := &o.Items[i]
		if it.Status != domain.OrderReserved {
			continue
		}
		if err := r.schedules.CommitTx(tx, it.ScheduleID, it.Participants); err != nil {
			return nil, err
		}
		it.Status = domain.OrderPaid
	}
	if err := tx.Model(&domain.OrderItem{}).
		Where("order_id = ? AND status = ?", o.ID, domain.OrderReserved).
		Update("status", domain.OrderPaid).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).
		Updates(map[string]any{"status": domain.OrderPaid, "expires_at": nil}).Error; err != nil {
		return nil, err
	}
	if err := setPaymentStatusTx(tx, o.ID, domain.PaymentSucceeded); err != nil {
		return nil, err
	}
	o.Status = domain.OrderPaid
	o.ExpiresAt = nil
	return o, nil
}

// Terminate moves a RESERVED order to a terminal failure state (EXPIRED,
// CANCELLED or FAILED) and releases each still-reserved item exactly once.
// Orders already terminal are skipped: duplicate triggers from the expiry
// sweep and the webhook failure path are benign.
func (r *OrderRepo) Terminate(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, bool, error) {
	var (
		out     *domain.Order
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, a, err := r.TerminateTx(tx, orderID, to)
		out, applied = o, a
		return err
	})
	return out, applied, err
}

func (r *OrderRepo) TerminateTx(tx *gorm.DB, orderID string, to domain.OrderStatus) (*domain.Order, bool, error) {
	o, err := lockOrder(tx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.Status.Terminal() {
		return o, false, nil
	}
	for i := range o.Items {
		it := &o.Items[i]
		if it.Status != domain.OrderReserved {
			continue
		}
		if err := r.schedules.ReleaseTx(tx, it.ScheduleID, it.Participants); err != nil {
			return nil, false, err
		}
		it.Status = to
	}
	if err := tx.Model(&domain.OrderItem{}).
		Where("order_id = ? AND status = ?", o.ID, domain.OrderReserved).
		Update("status", to).Error; err != nil {
		return nil, false, err
	}
	if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).
		Updates(map[string]any{"status": to, "expires_at": nil}).Error; err != nil {
		return nil, false, err
	}
	if err := setPaymentStatusTx(tx, o.ID, domain.PaymentFailed); err != nil {
		return nil, false, err
	}
	o.Status = to
	o.ExpiresAt = nil
	return o, true, nil
}

// Refund runs PAID -> REFUNDED. The slot stays booked: a refund has no
// capacity effect.
func (r *OrderRepo) Refund(ctx context.Context, orderID string) (*domain.Order, error) {
	var out *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderRefunded {
			out = o
			return nil
		}
		if o.Status != domain.OrderPaid {
			return domain.ErrStateConflict
		}
		if err := tx.Model(&domain.OrderItem{}).
			Where("order_id = ? AND status = ?", o.ID, domain.OrderPaid).
			Update("status", domain.OrderRefunded).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).
			Update("status", domain.OrderRefunded).Error; err != nil {
			return err
		}
		if err := setPaymentStatusTx(tx, o.ID, domain.PaymentRefunded); err != nil {
			return err
		}
		o.Status = domain.OrderRefunded
		out = o
		return nil
	})
	return out, err
}

// CancelItem is the manager-level per-item cancellation. While the order is
// RESERVED the item's hold is released; once PAID the slot stays booked,
// mirroring the refund rule. Cancelling the last live item of a RESERVED
// order cancels the order itself.
func (r *OrderRepo) CancelItem(ctx context.Context, orderID, itemID string) (*domain.OrderItem, error) {
	var out *domain.OrderItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		var item *domain.OrderItem
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				item = &o.Items[i]
				break
			}
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		if item.Status == domain.OrderCancelled {
			out = item
			return nil
		}
		switch o.Status {
		case domain.OrderReserved:
			if err := r.schedules.ReleaseTx(tx, item.ScheduleID, item.Participants); err != nil {
				return err
			}
		case domain.OrderPaid:
			// no capacity effect
		default:
			return domain.ErrStateConflict
		}
		if err := tx.Model(&domain.OrderItem{}).Where("id = ?", item.ID).
			Update("status", domain.OrderCancelled).Error; err != nil {
			return err
		}
		item.Status = domain.OrderCancelled

		if o.Status == domain.OrderReserved {
			live := 0
			for i := range o.Items {
				if o.Items[i].Status == domain.OrderReserved {
					live++
				}
			}
			if live == 0 {
				if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).
					Updates(map[string]any{"status": domain.OrderCancelled, "expires_at": nil}).Error; err != nil {
					return err
				}
				if err := setPaymentStatusTx(tx, o.ID, domain.PaymentFailed); err != nil {
					return err
				}
			}
		}
		out = item
		return nil
	})
	return out, err
}

func (r *OrderRepo) AssignManager(ctx context.Context, orderID, itemID, managerID string) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND order_id = ?", itemID, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.OrderItem{}).
		Where("id = ?", item.ID).
		Update("manager_id", managerID).Error; err != nil {
		return nil, err
	}
	item.ManagerID = &managerID
	return &item, nil
}
