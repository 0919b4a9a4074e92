package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/eaarma/tour-site-sub000/internal/events"
	"github.com/eaarma/tour-site-sub000/internal/notifier"
	"github.com/eaarma/tour-site-sub000/pkg/mq"
)

// NotificationConsumer turns order lifecycle events into customer
// notifications.
type NotificationConsumer struct {
	cons *mq.Consumer
	n    notifier.Notifier
}

func NewNotificationConsumer(cons *mq.Consumer, n notifier.Notifier) *NotificationConsumer {
	return &NotificationConsumer{cons: cons, n: n}
}

func (nc *NotificationConsumer) Run(ctx context.Context) error {
	msgs, err := nc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			if err := nc.handle(d.RoutingKey, d.Body); err != nil {
				log.Printf("[notify-consumer] key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

func (nc *NotificationConsumer) handle(key string, body []byte) error {
	switch key {
	case events.RKOrderPaid:
		ev, err := events.Decode[events.OrderPaid](body)
		if err != nil {
			return err
		}
		return nc.n.Notify("Payment received",
			fmt.Sprintf("Hi %s, your order %s is confirmed (%s %s).", ev.Name, ev.OrderID, ev.Amount, ev.Currency))

	case events.RKOrderExpired:
		ev, err := events.Decode[events.OrderExpired](body)
		if err != nil {
			return err
		}
		return nc.n.Notify("Reservation expired",
			fmt.Sprintf("Hi %s, your reservation %s expired before payment. The seats were released.", ev.Name, ev.OrderID))

	default:
		log.Printf("[notify-consumer] skip unknown key=%s", key)
	}
	return nil
}
