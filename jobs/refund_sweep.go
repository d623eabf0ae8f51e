package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/rs/zerolog"
)

const sweepBatchSize = 50

type CancelledAppointments interface {
	CancelledWithCapturedPayments(ctx context.Context, limit int) ([]models.Appointment, error)
}

type Refunder interface {
	RefundIfNeeded(ctx context.Context, appt models.Appointment) (*payments.RefundResult, error)
}

// RefundSweep retries refunds for cancelled appointments whose payment is still
// captured, which happens when the gateway failed during the cancellation.
type RefundSweep struct {
	appointments CancelledAppointments
	refunds      Refunder
	notifier     Notifier
	log          zerolog.Logger
	timeout      time.Duration
}

func NewRefundSweep(appointments CancelledAppointments, refunds Refunder, notifier Notifier, log zerolog.Logger) *RefundSweep {
	return &RefundSweep{
		appointments: appointments,
		refunds:      refunds,
		notifier:     notifier,
		log:          log,
		timeout:      5 * time.Minute,
	}
}

func (s *RefundSweep) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pending, err := s.appointments.CancelledWithCapturedPayments(ctx, sweepBatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load cancelled appointments with captured payments")
		return
	}
	if len(pending) == 0 {
		return
	}

	refunded := 0
	for _, appt := range pending {
		result, err := s.refunds.RefundIfNeeded(ctx, appt)
		if err != nil {
			s.log.Warn().Err(err).Uint64("appointment_id", appt.ID).Msg("refund retry failed")
			continue
		}
		if result == nil {
			continue
		}
		refunded++

		body := fmt.Sprintf("Your session with %s on %s at %s was cancelled. A refund of %.2f %s has been issued (reference %s).",
			result.MentorName, result.Date, result.StartTime, result.Amount, result.Currency, result.Reference)
		if _, err := s.notifier.Notify(ctx, appt.MenteeID, models.CategoryPayment, "Refund issued", body, map[string]string{
			"payment_id":       result.PaymentID.String(),
			"refund_reference": result.Reference,
		}); err != nil {
			s.log.Warn().Err(err).Uint64("appointment_id", appt.ID).Msg("refund notification failed")
		}
	}
	s.log.Info().Int("candidates", len(pending)).Int("refunded", refunded).Msg("refund sweep finished")
}
