package booking

import (
	"context"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
)

type ActiveAppointmentLister interface {
	ActiveForMentorOnDate(ctx context.Context, mentorID uuid.UUID, date string) ([]models.Appointment, error)
}

type ConflictChecker struct {
	appointments ActiveAppointmentLister
}

func NewConflictChecker(appointments ActiveAppointmentLister) *ConflictChecker {
	return &ConflictChecker{appointments: appointments}
}

// IsSlotFree reports whether [start,end) on date is clear of the mentor's pending
// and accepted appointments. A storage error is returned as-is, never as "free".
func (c *ConflictChecker) IsSlotFree(ctx context.Context, mentorID uuid.UUID, date, start, end string) (bool, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return false, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false, err
	}

	existing, err := c.appointments.ActiveForMentorOnDate(ctx, mentorID, date)
	if err != nil {
		return false, storageErr("load appointments for conflict check", err)
	}

	for _, appt := range existing {
		if !appt.Status.Active() {
			continue
		}
		exStart, err := parseClock(appt.StartTime)
		if err != nil {
			return false, storageErr("stored appointment start", err)
		}
		exEnd, err := parseClock(appt.EndTime)
		if err != nil {
			return false, storageErr("stored appointment end", err)
		}
		if overlaps(exStart, exEnd, startMin, endMin) {
			return false, nil
		}
	}
	return true, nil
}
