package worker

import (
	"context"
	"log"
	"time"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/events"
	"github.com/eaarma/tour-site-sub000/internal/repository"
	"github.com/eaarma/tour-site-sub000/pkg/mq"
)

const sweepBatch = 200

// Reconciler expires overdue reservations and retires past schedules.
type Reconciler struct {
	orders    *repository.OrderRepo
	schedules *repository.ScheduleRepo
	pub       *mq.Publisher
	interval  time.Duration
}

func NewReconciler(orders *repository.OrderRepo, schedules *repository.ScheduleRepo, pub *mq.Publisher, interval time.Duration) *Reconciler {
	return &Reconciler{orders: orders, schedules: schedules, pub: pub, interval: interval}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	log.Printf("[expiry] reconciler running every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[expiry] reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass. Each order is expired in its own
// transaction so one bad row cannot wedge the whole batch; a pass that
// finds nothing is a cheap no-op.
func (r *Reconciler) Sweep(ctx context.Context) {
	now := time.Now()

	ids, err := r.orders.StaleReserved(ctx, now, sweepBatch)
	if err != nil {
		log.Printf("[expiry] list stale reservations: %v", err)
	}
	expired := 0
	for _, id := range ids {
		o, applied, err := r.orders.Terminate(ctx, id, domain.OrderExpired)
		if err != nil {
			log.Printf("[expiry] expire order %s: %v", id, err)
			continue
		}
		if !applied {
			// Paid or cancelled between the scan and the lock.
			continue
		}
		expired++
		evt := events.OrderExpired{OrderID: o.ID, Email: o.ContactEmail, Name: o.ContactName}
		if err := r.pub.PublishJSON(ctx, events.RKOrderExpired, evt); err != nil {
			log.Printf("[expiry] publish %s: %v", events.RKOrderExpired, err)
		}
	}

	retired, err := r.schedules.ExpireStale(ctx, now)
	if err != nil {
		log.Printf("[expiry] retire schedules: %v", err)
	}
	if expired > 0 || retired > 0 {
		log.Printf("[expiry] sweep expired %d orders, retired %d schedules", expired, retired)
	}
}
