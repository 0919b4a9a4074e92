package stripepay

import (
	"context"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Client wraps the Stripe API for the settlement gateway: payment-intent
// create/retrieve on the way out, signature verification on the way in.
type Client struct {
	api           *client.API
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

type IntentParams struct {
	OrderID   string
	PaymentID string
	Amount    int64 // minor units
	Currency  string
}

// CreateIntent creates a provider-side payment intent. The idempotency key
// is derived from the order id, so a network retry of the same logical
// request can never create a second intent.
func (c *Client) CreateIntent(ctx context.Context, p IntentParams) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("order-" + p.OrderID)
	params.AddMetadata("orderId", p.OrderID)
	params.AddMetadata("paymentId", p.PaymentID)
	return c.api.PaymentIntents.New(params)
}

func (c *Client) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return c.api.PaymentIntents.Get(id, params)
}

// VerifyEvent checks the Stripe-Signature header against the shared
// webhook secret and returns the parsed event.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
}
