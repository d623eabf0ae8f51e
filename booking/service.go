package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/anjiri1684/mentorship/locks"
	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultFallbackMeetingURL = "https://meet.google.com/new"

type AppointmentRepository interface {
	ActiveAppointmentLister
	// InsertIfFree stores a pending appointment, failing with ErrSlotUnavailable
	// when an overlapping active appointment exists.
	InsertIfFree(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id uint64) (*models.Appointment, error)
	// TransitionStatus is a compare-and-set on status; it fails with
	// ErrInvalidTransition when the stored status is no longer from.
	TransitionStatus(ctx context.Context, id uint64, from, to models.AppointmentStatus) (*models.Appointment, error)
	SetMeetingLink(ctx context.Context, id uint64, link string) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error)
}

type AvailabilityReader interface {
	SlotsForDay(ctx context.Context, mentorID uuid.UUID, dayOfWeek int) ([]models.AvailabilitySlot, error)
}

type Directory interface {
	GetFullName(ctx context.Context, userID uuid.UUID) (string, error)
}

type LinkIssuer interface {
	Issue(ctx context.Context, appointmentID uint64, start time.Time, mentorName, menteeName string) string
	Clear(ctx context.Context, appointmentID uint64) error
}

type Refunder interface {
	RefundIfNeeded(ctx context.Context, appt models.Appointment) (*payments.RefundResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category, title, body string, metadata map[string]string) (*models.Notification, error)
}

type Options struct {
	Location           *time.Location
	FallbackMeetingURL string
	Now                func() time.Time
}

type Deps struct {
	Appointments AppointmentRepository
	Availability AvailabilityReader
	Directory    Directory
	Locker       locks.Locker
	Links        LinkIssuer
	Refunds      Refunder
	Notifier     Notifier
}

type Service struct {
	repo         AppointmentRepository
	availability AvailabilityReader
	directory    Directory
	locker       locks.Locker
	checker      *ConflictChecker
	links        LinkIssuer
	refunds      Refunder
	notifier     Notifier
	log          zerolog.Logger

	loc         *time.Location
	fallbackURL string
	now         func() time.Time

	effects map[models.AppointmentStatus][]effect
}

func NewService(deps Deps, opts Options, log zerolog.Logger) *Service {
	s := &Service{
		repo:         deps.Appointments,
		availability: deps.Availability,
		directory:    deps.Directory,
		locker:       deps.Locker,
		checker:      NewConflictChecker(deps.Appointments),
		links:        deps.Links,
		refunds:      deps.Refunds,
		notifier:     deps.Notifier,
		log:          log,
		loc:          opts.Location,
		fallbackURL:  opts.FallbackMeetingURL,
		now:          opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.fallbackURL == "" {
		s.fallbackURL = defaultFallbackMeetingURL
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.effects = s.buildEffects()
	return s
}

// CreateBooking reserves [start,end) on date with the mentor. The conflict check
// and the insert run under the mentor's lock, so two concurrent requests for
// overlapping ranges cannot both succeed.
func (s *Service) CreateBooking(ctx context.Context, mentorID, menteeID uuid.UUID, date, start, end string) (*models.Appointment, error) {
	if mentorID == menteeID {
		return nil, fmt.Errorf("%w: cannot book a session with yourself", ErrInvalidInput)
	}

	day, err := parseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	startMin, err := parseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return nil, err
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("%w: end must be after start", ErrSlotUnavailable)
	}

	startsAt, endsAt := at(day, startMin), at(day, endMin)
	if !startsAt.After(s.now()) {
		return nil, fmt.Errorf("%w: slot is in the past", ErrSlotUnavailable)
	}

	if err := s.withinAvailability(ctx, mentorID, isoWeekday(day), startMin, endMin); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		MentorID:  mentorID,
		MenteeID:  menteeID,
		Date:      day.Format(dateLayout),
		StartTime: formatClock(startMin),
		EndTime:   formatClock(endMin),
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    models.AppointmentPending,
	}

	err = s.locker.WithLock(ctx, "mentor:"+mentorID.String(), func(ctx context.Context) error {
		free, err := s.checker.IsSlotFree(ctx, mentorID, appt.Date, appt.StartTime, appt.EndTime)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}
		if err := s.repo.InsertIfFree(ctx, appt); err != nil {
			return storageErr("insert appointment", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, locks.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: %v", ErrProviderBusy, err)
		}
		return nil, err
	}

	s.log.Info().
		Uint64("appointment_id", appt.ID).
		Str("mentor_id", mentorID.String()).
		Str("mentee_id", menteeID.String()).
		Str("date", appt.Date).
		Str("start", appt.StartTime).
		Msg("appointment booked")

	menteeName := s.displayName(ctx, menteeID, "A mentee")
	if _, err := s.notifier.Notify(ctx, mentorID, models.CategoryBooking,
		"New booking request",
		fmt.Sprintf("%s requested a session on %s from %s to %s. Accept or decline it from your dashboard.", menteeName, appt.Date, appt.StartTime, appt.EndTime),
		appointmentMetadata(appt),
	); err != nil {
		s.log.Warn().Err(err).Uint64("appointment_id", appt.ID).Msg("new booking notification failed")
	}

	return appt, nil
}

func (s *Service) withinAvailability(ctx context.Context, mentorID uuid.UUID, weekday, startMin, endMin int) error {
	slots, err := s.availability.SlotsForDay(ctx, mentorID, weekday)
	if err != nil {
		return storageErr("load availability", err)
	}
	for _, slot := range slots {
		slotStart, err := parseClock(slot.StartTime)
		if err != nil {
			continue
		}
		slotEnd, err := parseClock(slot.EndTime)
		if err != nil {
			continue
		}
		if slotStart <= startMin && endMin <= slotEnd {
			return nil
		}
	}
	return fmt.Errorf("%w: outside the mentor's availability", ErrSlotUnavailable)
}

// SetStatus applies a status change requested by either participant. The stored
// status is committed before any side effect runs; a side-effect failure never
// rolls it back. When the refund fails the committed appointment is returned
// together with an ErrGateway error.
func (s *Service) SetStatus(ctx context.Context, id uint64, requested string, actor Actor) (*models.Appointment, error) {
	target, err := ParseStatus(requested)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if !actor.participatesIn(appt) {
		return nil, ErrNotFound
	}
	if err := checkTransition(appt.Status, target, actor.Role); err != nil {
		return nil, err
	}

	return s.transition(ctx, appt, target, actor)
}

// CancelByRequester cancels on the mentee's behalf. Cancelling twice is a quiet
// ErrNotFound rather than a transition error.
func (s *Service) CancelByRequester(ctx context.Context, id uint64, menteeID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if appt.MenteeID != menteeID || appt.Status == models.AppointmentCancelled {
		return nil, ErrNotFound
	}

	updated, err := s.transition(ctx, appt, models.AppointmentCancelled, Actor{ID: menteeID, Role: RoleMentee})
	if errors.Is(err, ErrInvalidTransition) {
		return nil, ErrNotFound
	}
	return updated, err
}

func (s *Service) transition(ctx context.Context, appt *models.Appointment, target models.AppointmentStatus, actor Actor) (*models.Appointment, error) {
	from := appt.Status
	updated, err := s.repo.TransitionStatus(ctx, appt.ID, from, target)
	if err != nil {
		return nil, storageErr("update appointment status", err)
	}

	s.log.Info().
		Uint64("appointment_id", updated.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor_role", string(actor.Role)).
		Msg("appointment status changed")

	st := &transitionState{
		appt:  updated,
		from:  from,
		actor: actor,
	}
	st.mentorName = s.displayName(ctx, updated.MentorID, "Your mentor")
	st.menteeName = s.displayName(ctx, updated.MenteeID, "Your mentee")

	return updated, s.runEffects(ctx, target, st)
}

// Get returns an appointment visible to the given user.
func (s *Service) Get(ctx context.Context, id uint64, userID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if appt.MentorID != userID && appt.MenteeID != userID {
		return nil, ErrNotFound
	}
	return appt, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	appts, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storageErr("list appointments", err)
	}
	return appts, nil
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID, fallback string) string {
	if s.directory == nil {
		return fallback
	}
	name, err := s.directory.GetFullName(ctx, userID)
	if err != nil || name == "" {
		return fallback
	}
	return name
}

func appointmentMetadata(appt *models.Appointment) map[string]string {
	return map[string]string{
		"appointment_id": strconv.FormatUint(appt.ID, 10),
		"date":           appt.Date,
		"start_time":     appt.StartTime,
		"end_time":       appt.EndTime,
	}
}
