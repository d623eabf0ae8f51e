package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var ErrConferencing = errors.New("conferencing provider failure")

const (
	MeetingDuration = 60 * time.Minute
	joinOpensBefore = 30 * time.Minute
	joinClosesAfter = 120 * time.Minute
)

// Conferencer creates a time-boxed meeting and returns its join URL.
type Conferencer interface {
	CreateMeeting(ctx context.Context, start time.Time, durationMinutes int, title string) (string, error)
}

type LinkStore interface {
	ClearMeetingLink(ctx context.Context, appointmentID uint64) error
}

type Issuer struct {
	conf  Conferencer
	links LinkStore
	log   zerolog.Logger
}

func NewIssuer(conf Conferencer, links LinkStore, log zerolog.Logger) *Issuer {
	return &Issuer{conf: conf, links: links, log: log}
}

// Issue returns a join URL for the appointment, or "" when the provider is
// unavailable. It never fails: accepting a booking must not depend on it.
func (i *Issuer) Issue(ctx context.Context, appointmentID uint64, start time.Time, mentorName, menteeName string) string {
	if i.conf == nil {
		return ""
	}

	title := fmt.Sprintf("Mentoring session: %s & %s", mentorName, menteeName)
	url, err := i.conf.CreateMeeting(ctx, start, int(MeetingDuration/time.Minute), title)
	if err != nil {
		i.log.Warn().Err(err).Uint64("appointment_id", appointmentID).Msg("meeting link issuance failed")
		return ""
	}
	if url == "" {
		i.log.Warn().Uint64("appointment_id", appointmentID).Msg("conferencing provider returned no join url")
	}
	return url
}

// Clear removes any stored link; an appointment without one is not an error.
func (i *Issuer) Clear(ctx context.Context, appointmentID uint64) error {
	if err := i.links.ClearMeetingLink(ctx, appointmentID); err != nil {
		return fmt.Errorf("clear meeting link for appointment %d: %w", appointmentID, err)
	}
	return nil
}

// JoinWindow is the interval during which a meeting link is usable.
func JoinWindow(start time.Time) (opens, closes time.Time) {
	return start.Add(-joinOpensBefore), start.Add(joinClosesAfter)
}

func IsJoinable(start, now time.Time) bool {
	opens, closes := JoinWindow(start)
	return !now.Before(opens) && !now.After(closes)
}
