package booking

import (
	"fmt"
	"strings"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
)

// statusTokens lists every client-supplied status value we accept. Anything else
// is rejected instead of being stored verbatim.
var statusTokens = map[string]models.AppointmentStatus{
	"pending":   models.AppointmentPending,
	"requested": models.AppointmentPending,
	"in attesa": models.AppointmentPending,
	"in_attesa": models.AppointmentPending,

	"accepted":   models.AppointmentAccepted,
	"accept":     models.AppointmentAccepted,
	"approved":   models.AppointmentAccepted,
	"confirmed":  models.AppointmentAccepted,
	"accettato":  models.AppointmentAccepted,
	"accettata":  models.AppointmentAccepted,
	"accetta":    models.AppointmentAccepted,
	"confermato": models.AppointmentAccepted,
	"confermata": models.AppointmentAccepted,

	"cancelled":  models.AppointmentCancelled,
	"canceled":   models.AppointmentCancelled,
	"cancel":     models.AppointmentCancelled,
	"rejected":   models.AppointmentCancelled,
	"reject":     models.AppointmentCancelled,
	"declined":   models.AppointmentCancelled,
	"decline":    models.AppointmentCancelled,
	"refused":    models.AppointmentCancelled,
	"rifiutato":  models.AppointmentCancelled,
	"rifiutata":  models.AppointmentCancelled,
	"rifiuta":    models.AppointmentCancelled,
	"annullato":  models.AppointmentCancelled,
	"annullata":  models.AppointmentCancelled,
	"cancellato": models.AppointmentCancelled,
	"cancellata": models.AppointmentCancelled,
}

// ParseStatus maps a client-supplied status to the canonical enum.
func ParseStatus(raw string) (models.AppointmentStatus, error) {
	token := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if status, ok := statusTokens[token]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: unrecognised status %q", ErrInvalidTransition, raw)
}

type Role string

const (
	RoleMentor Role = models.RoleMentor
	RoleMentee Role = models.RoleMentee
)

// Actor is the user performing a transition.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) participatesIn(appt *models.Appointment) bool {
	switch a.Role {
	case RoleMentor:
		return appt.MentorID == a.ID
	case RoleMentee:
		return appt.MenteeID == a.ID
	}
	return false
}

// checkTransition enforces Pending -> {Accepted, Cancelled} and Accepted -> Cancelled.
// Only the mentor accepts; either party may cancel.
func checkTransition(from, to models.AppointmentStatus, role Role) error {
	switch {
	case from == models.AppointmentCancelled:
		return fmt.Errorf("%w: appointment is already cancelled", ErrInvalidTransition)
	case from == to:
		return fmt.Errorf("%w: appointment is already %s", ErrInvalidTransition, to)
	case to == models.AppointmentAccepted:
		if role != RoleMentor {
			return fmt.Errorf("%w: only the mentor can accept a booking", ErrInvalidTransition)
		}
		if from != models.AppointmentPending {
			return fmt.Errorf("%w: cannot accept a %s appointment", ErrInvalidTransition, from)
		}
		return nil
	case to == models.AppointmentCancelled:
		if role != RoleMentor && role != RoleMentee {
			return fmt.Errorf("%w: role %q cannot cancel", ErrInvalidTransition, role)
		}
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
