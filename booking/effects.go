package booking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
)

// transitionState is shared by the effects of one transition, so a later effect
// sees what an earlier one did.
type transitionState struct {
	appt       *models.Appointment
	from       models.AppointmentStatus
	actor      Actor
	mentorName string
	menteeName string
	refund     *payments.RefundResult
}

type effect struct {
	name string
	// surface marks effects whose failure is returned to the caller. All other
	// failures are only logged.
	surface bool
	run     func(ctx context.Context, st *transitionState) error
}

// buildEffects lists the on-enter handlers per target status. Order matters:
// link and payment cleanup run before the notification that reports them.
func (s *Service) buildEffects() map[models.AppointmentStatus][]effect {
	return map[models.AppointmentStatus][]effect{
		models.AppointmentAccepted: {
			{name: "issue-meeting-link", run: s.issueMeetingLink},
			{name: "notify-accepted", run: s.notifyAccepted},
		},
		models.AppointmentCancelled: {
			{name: "clear-meeting-link", run: s.clearMeetingLink},
			{name: "refund-payment", surface: true, run: s.refundPayment},
			{name: "notify-cancelled", run: s.notifyCancelled},
		},
	}
}

// runEffects runs every effect for the target even when an earlier one fails.
func (s *Service) runEffects(ctx context.Context, target models.AppointmentStatus, st *transitionState) error {
	var surfaced error
	for _, e := range s.effects[target] {
		err := e.run(ctx, st)
		if err == nil {
			continue
		}
		logEvt := s.log.Warn()
		if e.surface {
			logEvt = s.log.Error()
		}
		logEvt.Err(err).
			Uint64("appointment_id", st.appt.ID).
			Str("effect", e.name).
			Str("status", string(target)).
			Msg("appointment side effect failed")
		if e.surface && surfaced == nil {
			surfaced = fmt.Errorf("%w: %s: %v", ErrGateway, e.name, err)
		}
	}
	return surfaced
}

func (s *Service) issueMeetingLink(ctx context.Context, st *transitionState) error {
	if st.appt.MeetingLink != nil && *st.appt.MeetingLink != "" {
		return nil
	}

	link := ""
	if s.links != nil {
		link = s.links.Issue(ctx, st.appt.ID, st.appt.StartsAt, st.mentorName, st.menteeName)
	}
	if link == "" {
		link = s.fallbackURL
	}
	st.appt.MeetingLink = &link

	if err := s.repo.SetMeetingLink(ctx, st.appt.ID, link); err != nil {
		return fmt.Errorf("persist meeting link: %w", err)
	}
	return nil
}

func (s *Service) notifyAccepted(ctx context.Context, st *transitionState) error {
	link := ""
	if st.appt.MeetingLink != nil {
		link = *st.appt.MeetingLink
	}
	meta := appointmentMetadata(st.appt)
	meta["meeting_link"] = link

	body := fmt.Sprintf("%s accepted your session on %s at %s.\n\nJoin here: %s",
		st.mentorName, st.appt.Date, st.appt.StartTime, link)
	_, err := s.notifier.Notify(ctx, st.appt.MenteeID, models.CategoryBooking, "Your session is confirmed", body, meta)
	return err
}

func (s *Service) clearMeetingLink(ctx context.Context, st *transitionState) error {
	if s.links != nil {
		if err := s.links.Clear(ctx, st.appt.ID); err != nil {
			return err
		}
	}
	st.appt.MeetingLink = nil
	return nil
}

func (s *Service) refundPayment(ctx context.Context, st *transitionState) error {
	if s.refunds == nil {
		return nil
	}
	result, err := s.refunds.RefundIfNeeded(ctx, *st.appt)
	if err != nil {
		return err
	}
	st.refund = result
	return nil
}

func (s *Service) notifyCancelled(ctx context.Context, st *transitionState) error {
	meta := appointmentMetadata(st.appt)
	meta["cancelled_by"] = string(st.actor.Role)
	if st.refund != nil {
		meta["refund_amount"] = strconv.FormatFloat(st.refund.Amount, 'f', 2, 64)
		meta["refund_currency"] = st.refund.Currency
		meta["refund_reference"] = st.refund.Reference
	}

	if st.actor.Role == RoleMentee {
		body := fmt.Sprintf("%s cancelled the session on %s at %s.", st.menteeName, st.appt.Date, st.appt.StartTime)
		if _, err := s.notifier.Notify(ctx, st.appt.MentorID, models.CategoryBooking, "Session cancelled", body, meta); err != nil {
			return err
		}
		if st.refund == nil {
			return nil
		}
		_, err := s.notifier.Notify(ctx, st.appt.MenteeID, models.CategoryPayment, "Refund issued", refundSentence(st.refund), meta)
		return err
	}

	title := "Your booking was declined"
	verb := "declined"
	if st.from == models.AppointmentAccepted {
		title = "Your session was cancelled"
		verb = "cancelled"
	}
	body := fmt.Sprintf("%s %s your session on %s at %s.", st.mentorName, verb, st.appt.Date, st.appt.StartTime)
	if st.refund != nil {
		body += " " + refundSentence(st.refund)
	}
	_, err := s.notifier.Notify(ctx, st.appt.MenteeID, models.CategoryBooking, title, body, meta)
	return err
}

func refundSentence(r *payments.RefundResult) string {
	return fmt.Sprintf("A refund of %.2f %s has been issued (reference %s).", r.Amount, r.Currency, r.Reference)
}
