package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys for fire-and-forget notification events. Publishing happens
// after the owning transaction commits; a lost event never affects the
// booking state.
const (
	RKOrderPaid    = "order.paid"
	RKOrderExpired = "order.expired"
)

type OrderPaid struct {
	OrderID  string `json:"order_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type OrderExpired struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
