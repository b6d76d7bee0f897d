package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/pymesoft/comercio-backend/pkg/stripe"
)

// StripeIntentClient exposes the subset of Stripe operations required by the
// payment service.
type StripeIntentClient interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the payment service can
// be tested.
func NewStripeClient(api *pkgstripe.Client) StripeIntentClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *stripeClientWrapper) Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.Cancel(id, params)
}
