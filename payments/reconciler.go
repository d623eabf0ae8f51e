package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/anjiri1684/mentorship/locks"
	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrGatewayFailure = errors.New("payment gateway failure")

type RefundRequest struct {
	PaymentReference string
	Amount           float64
	Currency         string
	IdempotencyKey   string
}

type RefundReceipt struct {
	Reference string
	Provider  string
}

type Gateway interface {
	Refund(ctx context.Context, req RefundRequest) (RefundReceipt, error)
}

type PaymentStore interface {
	// RefundablePayment returns the newest captured, unrefunded payment, or nil.
	RefundablePayment(ctx context.Context, appointmentID uint64) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	MarkRefunded(ctx context.Context, paymentID uuid.UUID, reference string, at time.Time) error
}

type NameLookup interface {
	GetFullName(ctx context.Context, userID uuid.UUID) (string, error)
}

// RefundResult carries what a cancellation notice needs to mention the refund.
type RefundResult struct {
	PaymentID  uuid.UUID
	Amount     float64
	Currency   string
	Reference  string
	Provider   string
	MentorName string
	Date       string
	StartTime  string
}

type Reconciler struct {
	store   PaymentStore
	gateway Gateway
	locker  locks.Locker
	names   NameLookup
	log     zerolog.Logger
	now     func() time.Time
}

func NewReconciler(store PaymentStore, gateway Gateway, locker locks.Locker, names NameLookup, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gateway,
		locker:  locker,
		names:   names,
		log:     log,
		now:     time.Now,
	}
}

// RefundIfNeeded reverses the newest captured payment of the appointment that
// has not been refunded. Newer uncaptured attempts do not hide it. It returns
// nil when there is nothing to refund, so calling it repeatedly moves money at
// most once.
func (r *Reconciler) RefundIfNeeded(ctx context.Context, appt models.Appointment) (*RefundResult, error) {
	latest, err := r.store.RefundablePayment(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("load payment for appointment %d: %w", appt.ID, err)
	}
	if latest == nil {
		return nil, nil
	}

	var result *RefundResult
	err = r.locker.WithLock(ctx, "payment:"+latest.ID.String(), func(ctx context.Context) error {
		payment, err := r.store.GetPayment(ctx, latest.ID)
		if err != nil {
			return fmt.Errorf("reload payment %s: %w", latest.ID, err)
		}
		if !refundable(payment) {
			return nil
		}

		receipt, err := r.gateway.Refund(ctx, RefundRequest{
			PaymentReference: *payment.ProviderTxnID,
			Amount:           payment.Amount,
			Currency:         payment.Currency,
			IdempotencyKey:   "refund-" + payment.ID.String(),
		})
		if err != nil {
			return fmt.Errorf("%w: refund payment %s: %w", ErrGatewayFailure, payment.ID, err)
		}

		if err := r.store.MarkRefunded(ctx, payment.ID, receipt.Reference, r.now()); err != nil {
			r.log.Error().Err(err).
				Str("payment_id", payment.ID.String()).
				Str("refund_reference", receipt.Reference).
				Msg("refund issued but payment record not updated, manual reconciliation required")
			return fmt.Errorf("mark payment %s refunded: %w", payment.ID, err)
		}

		result = &RefundResult{
			PaymentID:  payment.ID,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			Reference:  receipt.Reference,
			Provider:   receipt.Provider,
			MentorName: r.mentorName(ctx, appt.MentorID),
			Date:       appt.Date,
			StartTime:  appt.StartTime,
		}
		r.log.Info().
			Uint64("appointment_id", appt.ID).
			Str("payment_id", payment.ID.String()).
			Float64("amount", payment.Amount).
			Str("refund_reference", receipt.Reference).
			Msg("payment refunded")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func refundable(p *models.Payment) bool {
	if p == nil || p.PayoutStatus == models.PayoutRefunded {
		return false
	}
	if !p.Captured() {
		return false
	}
	return p.Amount > 0 && !math.IsInf(p.Amount, 0) && !math.IsNaN(p.Amount)
}

func (r *Reconciler) mentorName(ctx context.Context, mentorID uuid.UUID) string {
	if r.names == nil {
		return "your mentor"
	}
	name, err := r.names.GetFullName(ctx, mentorID)
	if err != nil || name == "" {
		return "your mentor"
	}
	return name
}

// SplitGross divides a captured amount into the mentor's net share and the
// platform fee, rounded to cents.
func SplitGross(gross, commissionRate float64) (mentorNet, platformFee float64) {
	platformFee = math.Round(gross*commissionRate*100) / 100
	mentorNet = math.Round((gross-platformFee)*100) / 100
	return mentorNet, platformFee
}
