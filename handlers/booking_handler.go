package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/mentorship/booking"
	"github.com/anjiri1684/mentorship/meetings"
	"github.com/anjiri1684/mentorship/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService interface {
	CreateBooking(ctx context.Context, mentorID, menteeID uuid.UUID, date, start, end string) (*models.Appointment, error)
	SetStatus(ctx context.Context, id uint64, requested string, actor booking.Actor) (*models.Appointment, error)
	CancelByRequester(ctx context.Context, id uint64, menteeID uuid.UUID) (*models.Appointment, error)
	Get(ctx context.Context, id uint64, userID uuid.UUID) (*models.Appointment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error)
}

type BookingHandler struct {
	svc BookingService
	log zerolog.Logger
	now func() time.Time
}

func NewBookingHandler(svc BookingService, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log, now: time.Now}
}

type CreateBookingRequest struct {
	MentorID  string `json:"mentor_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

// AppointmentView adds the read-time flags clients need to render a session.
type AppointmentView struct {
	models.Appointment
	Joinable     bool      `json:"joinable"`
	Completed    bool      `json:"completed"`
	JoinOpensAt  time.Time `json:"join_opens_at"`
	JoinClosesAt time.Time `json:"join_closes_at"`
}

func (h *BookingHandler) view(a models.Appointment) AppointmentView {
	now := h.now()
	opens, closes := meetings.JoinWindow(a.StartsAt)
	return AppointmentView{
		Appointment:  a,
		Joinable:     a.Status == models.AppointmentAccepted && a.MeetingLink != nil && meetings.IsJoinable(a.StartsAt, now),
		Completed:    a.Completed(now),
		JoinOpensAt:  opens,
		JoinClosesAt: closes,
	}
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	menteeID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	mentorID, _ := uuid.Parse(req.MentorID)

	appt, err := h.svc.CreateBooking(c.UserContext(), mentorID, menteeID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.view(*appt))
}

// SetStatus lets either participant move the appointment; the role comes from the token.
func (h *BookingHandler) SetStatus(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	appt, err := h.svc.SetStatus(c.UserContext(), id, req.Status, booking.Actor{ID: userID, Role: booking.Role(role)})
	return h.transitionResponse(c, appt, err)
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	menteeID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.svc.CancelByRequester(c.UserContext(), id, menteeID)
	return h.transitionResponse(c, appt, err)
}

// transitionResponse reports a committed transition as success even when the
// refund failed; the failure is surfaced as a warning for follow-up.
func (h *BookingHandler) transitionResponse(c *fiber.Ctx, appt *models.Appointment, err error) error {
	if err != nil && appt != nil && errors.Is(err, booking.ErrGateway) {
		h.log.Error().Err(err).Uint64("appointment_id", appt.ID).Msg("appointment cancelled but refund failed")
		return c.JSON(fiber.Map{
			"appointment": h.view(*appt),
			"warning":     "The appointment was cancelled but the refund could not be issued yet. Our team will follow up.",
		})
	}
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"appointment": h.view(*appt)})
}

func (h *BookingHandler) GetMine(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)

	appts, err := h.svc.ListForUser(c.UserContext(), userID, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		views = append(views, h.view(a))
	}
	return c.JSON(fiber.Map{"appointments": views, "limit": limit, "offset": offset})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.svc.Get(c.UserContext(), id, userID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(h.view(*appt))
}
