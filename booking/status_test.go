package booking

import (
	"testing"

	"github.com/anjiri1684/mentorship/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want models.AppointmentStatus
	}{
		{"accepted", models.AppointmentAccepted},
		{"Accettato", models.AppointmentAccepted},
		{"  CONFIRMED ", models.AppointmentAccepted},
		{"rifiutato", models.AppointmentCancelled},
		{"Annullata", models.AppointmentCancelled},
		{"canceled", models.AppointmentCancelled},
		{"declined", models.AppointmentCancelled},
		{"in   attesa", models.AppointmentPending},
		{"pending", models.AppointmentPending},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus_RejectsUnknownTokens(t *testing.T) {
	for _, raw := range []string{"", "done", "completed", "accepted!", "maybe"} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidTransition, raw)
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.AppointmentStatus
		to      models.AppointmentStatus
		role    Role
		allowed bool
	}{
		{"mentor accepts pending", models.AppointmentPending, models.AppointmentAccepted, RoleMentor, true},
		{"mentee cannot accept", models.AppointmentPending, models.AppointmentAccepted, RoleMentee, false},
		{"mentor declines pending", models.AppointmentPending, models.AppointmentCancelled, RoleMentor, true},
		{"mentee cancels pending", models.AppointmentPending, models.AppointmentCancelled, RoleMentee, true},
		{"mentor cancels accepted", models.AppointmentAccepted, models.AppointmentCancelled, RoleMentor, true},
		{"mentee cancels accepted", models.AppointmentAccepted, models.AppointmentCancelled, RoleMentee, true},
		{"accept twice", models.AppointmentAccepted, models.AppointmentAccepted, RoleMentor, false},
		{"cancelled is terminal", models.AppointmentCancelled, models.AppointmentAccepted, RoleMentor, false},
		{"cancel twice", models.AppointmentCancelled, models.AppointmentCancelled, RoleMentor, false},
		{"back to pending", models.AppointmentAccepted, models.AppointmentPending, RoleMentor, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.from, tt.to, tt.role)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}
