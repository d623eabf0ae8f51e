package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/google/uuid"
)

type memoryAppointments struct {
	mu      sync.Mutex
	nextID  uint64
	byID    map[uint64]*models.Appointment
	listErr error
	linkErr error
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{byID: map[uint64]*models.Appointment{}}
}

func (m *memoryAppointments) ActiveForMentorOnDate(_ context.Context, mentorID uuid.UUID, date string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Appointment
	for _, a := range m.byID {
		if a.MentorID == mentorID && a.Date == date && a.Status.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryAppointments) InsertIfFree(_ context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	appt.ID = m.nextID
	cp := *appt
	m.byID[appt.ID] = &cp
	return nil
}

func (m *memoryAppointments) GetAppointment(_ context.Context, id uint64) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAppointments) TransitionStatus(_ context.Context, id uint64, from, to models.AppointmentStatus) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != from {
		return nil, ErrInvalidTransition
	}
	a.Status = to
	if to == models.AppointmentCancelled {
		a.MeetingLink = nil
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAppointments) SetMeetingLink(_ context.Context, id uint64, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return m.linkErr
	}
	m.byID[id].MeetingLink = &link
	return nil
}

func (m *memoryAppointments) ClearMeetingLink(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		a.MeetingLink = nil
	}
	return nil
}

func (m *memoryAppointments) ListForUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.byID {
		if a.MentorID == userID || a.MenteeID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type weeklyAvailability struct {
	slots []models.AvailabilitySlot
}

func (w *weeklyAvailability) SlotsForDay(_ context.Context, mentorID uuid.UUID, dayOfWeek int) ([]models.AvailabilitySlot, error) {
	var out []models.AvailabilitySlot
	for _, s := range w.slots {
		if s.MentorID == mentorID && s.DayOfWeek == dayOfWeek {
			out = append(out, s)
		}
	}
	return out, nil
}

type staticDirectory map[uuid.UUID]string

func (d staticDirectory) GetFullName(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := d[id]
	if !ok {
		return "", errors.New("unknown user")
	}
	return name, nil
}

type sentNotification struct {
	UserID   uuid.UUID
	Category string
	Title    string
	Body     string
	Metadata map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, category, title, body string, metadata map[string]string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Category: category, Title: title, Body: body, Metadata: metadata})
	return &models.Notification{ID: uint64(len(r.sent)), UserID: userID, Category: category, Title: title, Body: body}, nil
}

func (r *recordingNotifier) For(userID uuid.UUID) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type stubLinks struct {
	mu      sync.Mutex
	link    string
	issued  int
	cleared int
	store   interface {
		ClearMeetingLink(ctx context.Context, id uint64) error
	}
}

func (s *stubLinks) Issue(context.Context, uint64, time.Time, string, string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.link
}

func (s *stubLinks) Clear(ctx context.Context, id uint64) error {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
	if s.store != nil {
		return s.store.ClearMeetingLink(ctx, id)
	}
	return nil
}

type memoryPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
}

func (m *memoryPayments) RefundablePayment(_ context.Context, appointmentID uint64) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.AppointmentID == appointmentID && p.Captured() && p.PayoutStatus != models.PayoutRefunded {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryPayments) GetPayment(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.payments[id]
	return &cp, nil
}

func (m *memoryPayments) MarkRefunded(_ context.Context, id uuid.UUID, reference string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.payments[id]
	p.PayoutStatus = models.PayoutRefunded
	p.MentorNet, p.PlatformFee = 0, 0
	p.RefundReference = &reference
	p.RefundedAt = &at
	return nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []payments.RefundRequest
	err   error
}

func (g *fakeGateway) Refund(_ context.Context, req payments.RefundRequest) (payments.RefundReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return payments.RefundReceipt{}, g.err
	}
	return payments.RefundReceipt{Reference: "RF-" + req.PaymentReference, Provider: "paypal"}, nil
}
