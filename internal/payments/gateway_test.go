package payments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/navi/orderflow/internal/orders/adapters/memory"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/payments"
	"github.com/navi/orderflow/internal/payments/fake"
)

var ada = ports.Caller{ID: "user-1", Email: "ada@example.com"}

// statusProcessor reports a fixed status for new intents.
type statusProcessor struct {
	*fake.Processor
	status string
}

func (p statusProcessor) CreateIntent(ctx context.Context, params payments.IntentParams) (payments.Intent, error) {
	in, err := p.Processor.CreateIntent(ctx, params)
	in.Status = p.status
	return in, err
}

func authorize(t *testing.T, gw *payments.Gateway, amount int64) (string, domain.Payment) {
	t.Helper()
	secret, payment, err := gw.Authorize(context.Background(), ports.AuthorizeRequest{
		OrderID:     "order-1",
		AmountCents: amount,
		Currency:    "usd",
		Customer:    ada,
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return secret, payment
}

func TestGatewayAuthorize(t *testing.T) {
	t.Run("holds funds without charging", func(t *testing.T) {
		processor := fake.NewProcessor()
		gw := payments.NewGateway(processor, memory.NewDirectory())

		secret, payment := authorize(t, gw, 1400)

		if secret == "" {
			t.Error("expected a client secret")
		}
		if payment.Status != domain.PaymentRequiresCapture {
			t.Errorf("expected status %s, got %s", domain.PaymentRequiresCapture, payment.Status)
		}
		if payment.AmountReceivedCents != 0 {
			t.Errorf("expected nothing received yet, got %d", payment.AmountReceivedCents)
		}
		if payment.ID == "" || payment.GatewayIntentID == "" {
			t.Errorf("expected ids to be set, got %+v", payment)
		}
	})

	t.Run("creates the processor customer once and reuses it", func(t *testing.T) {
		processor := fake.NewProcessor()
		directory := memory.NewDirectory()
		gw := payments.NewGateway(processor, directory)

		authorize(t, gw, 500)
		authorize(t, gw, 700)

		if got := processor.Calls(fake.OpCustomer); got != 1 {
			t.Errorf("expected one customer creation, got %d", got)
		}
		id, _ := directory.GatewayCustomerID(context.Background(), ada.ID)
		if id == "" {
			t.Error("expected the customer id to be stored on the user")
		}
	})

	t.Run("surfaces declines as gateway errors", func(t *testing.T) {
		processor := fake.NewProcessor()
		processor.FailNext(fake.OpAuthorize, "card_declined", "Your card was declined.")
		gw := payments.NewGateway(processor, memory.NewDirectory())

		_, _, err := gw.Authorize(context.Background(), ports.AuthorizeRequest{
			OrderID: "order-1", AmountCents: 100, Currency: "usd", Customer: ada,
		})

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gwErr.Code != "card_declined" || gwErr.Op != "authorize" {
			t.Errorf("unexpected gateway error: %+v", gwErr)
		}
		if !errors.Is(err, domain.ErrGateway) {
			t.Error("expected error to match ErrGateway")
		}
	})

	t.Run("records the status the processor reports", func(t *testing.T) {
		tests := []struct {
			status string
			want   domain.PaymentStatus
		}{
			{"requires_payment_method", domain.PaymentRequiresPaymentMethod},
			{"requires_confirmation", domain.PaymentRequiresConfirmation},
			{"requires_action", domain.PaymentRequiresAction},
			{"requires_capture", domain.PaymentRequiresCapture},
			{"mystery", domain.PaymentFailed},
		}
		for _, tt := range tests {
			gw := payments.NewGateway(statusProcessor{Processor: fake.NewProcessor(), status: tt.status}, memory.NewDirectory())

			_, payment := authorize(t, gw, 1400)

			if payment.Status != tt.want {
				t.Errorf("intent status %q: expected %s, got %s", tt.status, tt.want, payment.Status)
			}
		}
	})

	t.Run("rejects non-positive amounts before calling the processor", func(t *testing.T) {
		processor := fake.NewProcessor()
		gw := payments.NewGateway(processor, memory.NewDirectory())

		_, _, err := gw.Authorize(context.Background(), ports.AuthorizeRequest{OrderID: "o", Customer: ada})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
		if processor.Calls(fake.OpAuthorize) != 0 {
			t.Error("expected processor not to be called")
		}
	})
}

func TestGatewayCapture(t *testing.T) {
	t.Run("mirrors the captured amount and status", func(t *testing.T) {
		gw := payments.NewGateway(fake.NewProcessor(), memory.NewDirectory())
		_, payment := authorize(t, gw, 1400)

		captured, err := gw.Capture(context.Background(), payment)
		if err != nil {
			t.Fatalf("capture: %v", err)
		}
		if captured.Status != domain.PaymentSucceeded {
			t.Errorf("expected status %s, got %s", domain.PaymentSucceeded, captured.Status)
		}
		if captured.AmountReceivedCents != 1400 {
			t.Errorf("expected 1400 received, got %d", captured.AmountReceivedCents)
		}
		if captured.ID != payment.ID {
			t.Errorf("expected local id to be kept, got %s", captured.ID)
		}
	})

	t.Run("returns the payment unchanged on failure", func(t *testing.T) {
		processor := fake.NewProcessor()
		gw := payments.NewGateway(processor, memory.NewDirectory())
		_, payment := authorize(t, gw, 1400)
		processor.FailNext(fake.OpCapture, "charge_expired_for_capture", "The charge has expired.")

		got, err := gw.Capture(context.Background(), payment)
		if !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("expected gateway error, got %v", err)
		}
		if got != payment {
			t.Errorf("expected payment to be untouched, got %+v", got)
		}
	})
}

func TestGatewayCancel(t *testing.T) {
	gw := payments.NewGateway(fake.NewProcessor(), memory.NewDirectory())
	_, payment := authorize(t, gw, 900)

	canceled, err := gw.Cancel(context.Background(), payment)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != domain.PaymentCanceled {
		t.Errorf("expected status %s, got %s", domain.PaymentCanceled, canceled.Status)
	}

	if _, err := gw.Capture(context.Background(), canceled); !errors.Is(err, domain.ErrGateway) {
		t.Errorf("expected capture of a canceled intent to fail, got %v", err)
	}
}
