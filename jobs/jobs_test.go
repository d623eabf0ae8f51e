package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/mentorship/locks"
	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upcomingStub struct {
	from, to time.Time
	appts    []models.Appointment
}

func (u *upcomingStub) AcceptedStartingBetween(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	u.from, u.to = from, to
	return u.appts, nil
}

type notified struct {
	userID   uuid.UUID
	category string
	body     string
}

type recorder struct {
	mu   sync.Mutex
	sent []notified
}

func (r *recorder) Notify(_ context.Context, userID uuid.UUID, category, _, body string, _ map[string]string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notified{userID: userID, category: category, body: body})
	return &models.Notification{}, nil
}

func TestReminderJob_NotifiesBothParticipants(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	link := "https://meet.google.com/abc"
	mentor, mentee := uuid.New(), uuid.New()
	stub := &upcomingStub{appts: []models.Appointment{
		{ID: 1, MentorID: mentor, MenteeID: mentee, Date: "2026-01-05", StartTime: "10:02", MeetingLink: &link},
	}}
	rec := &recorder{}

	job := NewReminderJob(stub, rec, zerolog.Nop())
	job.now = func() time.Time { return now }
	job.Run()

	assert.Equal(t, now.Add(60*time.Minute), stub.from)
	assert.Equal(t, now.Add(65*time.Minute), stub.to)
	require.Len(t, rec.sent, 2)
	assert.Equal(t, mentee, rec.sent[0].userID)
	assert.Equal(t, mentor, rec.sent[1].userID)
	assert.Equal(t, models.CategoryReminder, rec.sent[0].category)
	assert.Contains(t, rec.sent[0].body, link)
}

type cancelledStub struct {
	appts []models.Appointment
}

func (c *cancelledStub) CancelledWithCapturedPayments(context.Context, int) ([]models.Appointment, error) {
	return c.appts, nil
}

type refunderStub struct {
	results map[uint64]*payments.RefundResult
	errs    map[uint64]error
}

func (r *refunderStub) RefundIfNeeded(_ context.Context, appt models.Appointment) (*payments.RefundResult, error) {
	return r.results[appt.ID], r.errs[appt.ID]
}

func TestRefundSweep(t *testing.T) {
	paid, failing, settled := uuid.New(), uuid.New(), uuid.New()
	stub := &cancelledStub{appts: []models.Appointment{
		{ID: 1, MenteeID: paid},
		{ID: 2, MenteeID: failing},
		{ID: 3, MenteeID: settled},
	}}
	refunds := &refunderStub{
		results: map[uint64]*payments.RefundResult{
			1: {PaymentID: uuid.New(), Amount: 50, Currency: "EUR", Reference: "RF-1", MentorName: "Giulia Rossi", Date: "2026-01-05", StartTime: "10:00"},
		},
		errs: map[uint64]error{2: errors.New("paypal unavailable")},
	}
	rec := &recorder{}

	NewRefundSweep(stub, refunds, rec, zerolog.Nop()).Run()

	require.Len(t, rec.sent, 1)
	assert.Equal(t, paid, rec.sent[0].userID)
	assert.Equal(t, models.CategoryPayment, rec.sent[0].category)
	assert.Contains(t, rec.sent[0].body, "50.00 EUR")
}

// paymentLedger backs both the sweep query and the reconciler, so a candidate
// the sweep selects is the payment the reconciler refunds.
type paymentLedger struct {
	mu       sync.Mutex
	appts    []models.Appointment
	payments []*models.Payment
}

func (l *paymentLedger) refundable(p *models.Payment) bool {
	return p.Captured() && p.PayoutStatus != models.PayoutRefunded
}

func (l *paymentLedger) CancelledWithCapturedPayments(_ context.Context, limit int) ([]models.Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Appointment
	for _, a := range l.appts {
		for _, p := range l.payments {
			if p.AppointmentID == a.ID && l.refundable(p) {
				out = append(out, a)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *paymentLedger) RefundablePayment(_ context.Context, appointmentID uint64) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var latest *models.Payment
	for _, p := range l.payments {
		if p.AppointmentID != appointmentID || !l.refundable(p) {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (l *paymentLedger) GetPayment(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.New("payment not found")
}

func (l *paymentLedger) MarkRefunded(_ context.Context, id uuid.UUID, reference string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payments {
		if p.ID == id {
			p.PayoutStatus = models.PayoutRefunded
			p.RefundReference = &reference
			p.RefundedAt = &at
		}
	}
	return nil
}

type gatewayStub struct {
	calls []payments.RefundRequest
}

func (g *gatewayStub) Refund(_ context.Context, req payments.RefundRequest) (payments.RefundReceipt, error) {
	g.calls = append(g.calls, req)
	return payments.RefundReceipt{Reference: "RF-9", Provider: payments.ProviderPayPal}, nil
}

func TestRefundSweep_RefundsCaptureBehindNewerAttempt(t *testing.T) {
	mentee := uuid.New()
	txn := "CAP-1"
	captured := &models.Payment{
		ID: uuid.New(), AppointmentID: 7, Amount: 50, Currency: "EUR",
		ProviderTxnID: &txn, Status: models.PaymentSucceeded, PayoutStatus: models.PayoutPending,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	retry := &models.Payment{
		ID: uuid.New(), AppointmentID: 7, Amount: 50, Currency: "EUR",
		Status: models.PaymentPending, PayoutStatus: models.PayoutPending,
		CreatedAt: time.Now(),
	}
	ledger := &paymentLedger{
		appts:    []models.Appointment{{ID: 7, MenteeID: mentee, Status: models.AppointmentCancelled}},
		payments: []*models.Payment{captured, retry},
	}
	gateway := &gatewayStub{}
	reconciler := payments.NewReconciler(ledger, gateway, locks.NewLocalLocker(), nil, zerolog.Nop())
	rec := &recorder{}
	sweep := NewRefundSweep(ledger, reconciler, rec, zerolog.Nop())

	sweep.Run()

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, "CAP-1", gateway.calls[0].PaymentReference)
	assert.Equal(t, models.PayoutRefunded, captured.PayoutStatus)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, mentee, rec.sent[0].userID)

	left, err := ledger.CancelledWithCapturedPayments(context.Background(), sweepBatchSize)
	require.NoError(t, err)
	assert.Empty(t, left)

	sweep.Run()
	assert.Len(t, gateway.calls, 1)
}
