package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/anjiri1684/mentorship/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	reminderLead   = 60 * time.Minute
	reminderWindow = 5 * time.Minute
)

type UpcomingAppointments interface {
	AcceptedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category, title, body string, metadata map[string]string) (*models.Notification, error)
}

// ReminderJob notifies both participants an hour before an accepted session.
// It is scheduled every five minutes and each run covers the next five-minute
// slice, so every session is reminded once.
type ReminderJob struct {
	appointments UpcomingAppointments
	notifier     Notifier
	log          zerolog.Logger
	now          func() time.Time
	timeout      time.Duration
}

func NewReminderJob(appointments UpcomingAppointments, notifier Notifier, log zerolog.Logger) *ReminderJob {
	return &ReminderJob{
		appointments: appointments,
		notifier:     notifier,
		log:          log,
		now:          time.Now,
		timeout:      time.Minute,
	}
}

func (j *ReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	now := j.now()
	lowerBound := now.Add(reminderLead)
	upperBound := lowerBound.Add(reminderWindow)

	upcoming, err := j.appointments.AcceptedStartingBetween(ctx, lowerBound, upperBound)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to load upcoming sessions")
		return
	}
	if len(upcoming) == 0 {
		return
	}

	for _, appt := range upcoming {
		link := ""
		if appt.MeetingLink != nil {
			link = *appt.MeetingLink
		}
		body := fmt.Sprintf("Your session on %s starts at %s, in about one hour.", appt.Date, appt.StartTime)
		if link != "" {
			body += "\n\nMeeting link: " + link
		}
		meta := map[string]string{
			"appointment_id": strconv.FormatUint(appt.ID, 10),
			"meeting_link":   link,
		}

		for _, userID := range []uuid.UUID{appt.MenteeID, appt.MentorID} {
			if _, err := j.notifier.Notify(ctx, userID, models.CategoryReminder, "Reminder: your session starts in 1 hour", body, meta); err != nil {
				j.log.Warn().Err(err).Uint64("appointment_id", appt.ID).Str("user_id", userID.String()).Msg("failed to send session reminder")
			}
		}
	}
	j.log.Info().Int("sessions", len(upcoming)).Msg("session reminders sent")
}
