package stripegw

import (
	"context"
	"errors"

	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/commands"

	"github.com/stripe/stripe-go/v82"
)

// Gateway implements the payment processor port on Stripe destination
// charges. Every mutating call carries a caller-supplied idempotency key so
// retries after a timeout cannot double-charge or double-refund.
type Gateway struct {
	sc *stripe.Client
}

func NewGateway(sc *stripe.Client) *Gateway {
	return &Gateway{sc: sc}
}

func (g *Gateway) CreateDestinationCharge(ctx context.Context, req commands.ChargeRequest) (*commands.ChargeIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:               stripe.Int64(req.AmountCents),
		Currency:             stripe.String(req.Currency),
		ApplicationFeeAmount: stripe.Int64(req.PlatformFeeCents),
		TransferData: &stripe.PaymentIntentCreateTransferDataParams{
			Destination: stripe.String(req.DestinationRef),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"booking_id": req.BookingID.String(),
		},
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := g.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, wrapStripeErr("failed to create payment intent", err)
	}

	return &commands.ChargeIntent{
		ProcessorRef: pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *Gateway) RetrieveIntent(ctx context.Context, processorRef string) (*commands.ChargeIntent, error) {
	pi, err := g.sc.V1PaymentIntents.Retrieve(ctx, processorRef, nil)
	if err != nil {
		return nil, wrapStripeErr("failed to retrieve payment intent", err)
	}

	return &commands.ChargeIntent{
		ProcessorRef: pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *Gateway) CreateRefund(ctx context.Context, req commands.RefundRequest) (*commands.RefundResult, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.ProcessorRef),
		Amount:        stripe.Int64(req.AmountCents),
		Metadata: map[string]string{
			"reason": req.Reason,
		},
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	refund, err := g.sc.V1Refunds.Create(ctx, params)
	if err != nil {
		return nil, wrapStripeErr("failed to create refund", err)
	}

	return &commands.RefundResult{
		RefundRef: refund.ID,
		Status:    string(refund.Status),
	}, nil
}

func wrapStripeErr(msg string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return errs.Mark(errs.Wrapf(err, "%s: %s", msg, stripeErr.Code), errs.ErrPaymentFailed)
	}
	return errs.Wrap(err, msg)
}
