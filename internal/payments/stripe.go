package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrAlreadyAttached is returned when the payment method already belongs to
// the customer. Callers treat it as success.
var ErrAlreadyAttached = errors.New("payment method already attached")

type Intent struct {
	ID     string
	Status string
	Amount int64
}

type IntentInput struct {
	AmountCents int64
	Currency    string
	CustomerID  string
	Metadata    map[string]string
}

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customer.ID, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	if _, err := g.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceAlreadyExists {
			return ErrAlreadyAttached
		}
		return fmt.Errorf("attach payment method: %w", err)
	}
	return nil
}

// CreatePaymentIntent creates an intent that can be confirmed server side
// without a redirect flow.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, input IntentInput) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(input.Currency),
		Customer: stripe.String(input.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		},
	}
	params.Context = ctx
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, Status: string(pi.Status), Amount: pi.Amount}, nil
}

func (g *StripeGateway) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("confirm payment intent: %w", err)
	}
	return Intent{ID: pi.ID, Status: string(pi.Status), Amount: pi.Amount}, nil
}
