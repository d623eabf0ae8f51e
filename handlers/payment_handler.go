package handlers

import (
	"context"
	"errors"

	"github.com/anjiri1684/mentorship/models"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkCaptured(ctx context.Context, id uuid.UUID, txnID string, mentorNet, platformFee float64) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	HasCapturedPayment(ctx context.Context, appointmentID uint64) (bool, error)
}

type AppointmentLookup interface {
	GetAppointment(ctx context.Context, id uint64) (*models.Appointment, error)
}

type MentorLookup interface {
	GetMentor(ctx context.Context, userID uuid.UUID) (*models.Mentor, error)
}

type Checkout interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*payments.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*payments.CapturedOrder, error)
}

type PaymentHandler struct {
	payments       PaymentStore
	appointments   AppointmentLookup
	mentors        MentorLookup
	checkout       Checkout
	commissionRate float64
	log            zerolog.Logger
}

func NewPaymentHandler(store PaymentStore, appointments AppointmentLookup, mentors MentorLookup, checkout Checkout, commissionRate float64, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:       store,
		appointments:   appointments,
		mentors:        mentors,
		checkout:       checkout,
		commissionRate: commissionRate,
		log:            log,
	}
}

// CreatePayPalOrder starts a PayPal checkout for the mentor's session price. An
// appointment is paid at most once.
func (h *PaymentHandler) CreatePayPalOrder(c *fiber.Ctx) error {
	menteeID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.appointments.GetAppointment(c.UserContext(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	if appt.MenteeID != menteeID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	}
	if !appt.Status.Active() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Appointment is cancelled"})
	}
	paid, err := h.payments.HasCapturedPayment(c.UserContext(), appt.ID)
	if err != nil {
		return errorJSON(c, err)
	}
	if paid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Appointment is already paid"})
	}

	mentor, err := h.mentors.GetMentor(c.UserContext(), appt.MentorID)
	if err != nil {
		return errorJSON(c, err)
	}
	if mentor.PricePerSession <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This mentor does not charge for sessions"})
	}

	order, err := h.checkout.CreateOrder(c.UserContext(), mentor.PricePerSession, mentor.Currency)
	if err != nil {
		h.log.Error().Err(err).Uint64("appointment_id", appt.ID).Msg("paypal create order failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create PayPal order"})
	}

	payment := models.Payment{
		AppointmentID:   appt.ID,
		Amount:          mentor.PricePerSession,
		Currency:        mentor.Currency,
		Provider:        payments.ProviderPayPal,
		ProviderOrderID: &order.ID,
		Status:          models.PaymentPending,
		PayoutStatus:    models.PayoutPending,
	}
	if err := h.payments.CreatePayment(c.UserContext(), &payment); err != nil {
		h.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to store payment for paypal order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment_id": payment.ID, "order_id": order.ID})
}

type CaptureRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

func (h *PaymentHandler) CapturePayPalOrder(c *fiber.Ctx) error {
	menteeID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := h.payments.GetPaymentByOrderID(c.UserContext(), req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment record not found for this order"})
		}
		return errorJSON(c, err)
	}
	appt, err := h.appointments.GetAppointment(c.UserContext(), payment.AppointmentID)
	if err != nil || appt.MenteeID != menteeID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment record not found for this order"})
	}
	if payment.Status == models.PaymentSucceeded {
		return c.JSON(fiber.Map{"message": "Payment already captured", "payment_id": payment.ID})
	}
	// a second open order must not take money twice
	paid, err := h.payments.HasCapturedPayment(c.UserContext(), payment.AppointmentID)
	if err != nil {
		return errorJSON(c, err)
	}
	if paid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Appointment is already paid"})
	}

	captured, err := h.checkout.CaptureOrder(c.UserContext(), req.OrderID)
	if err != nil {
		h.log.Error().Err(err).Str("order_id", req.OrderID).Msg("paypal capture failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to capture PayPal order"})
	}
	if captured.Status != "COMPLETED" || captured.CaptureID == "" {
		if err := h.payments.MarkFailed(c.UserContext(), payment.ID); err != nil {
			h.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to mark payment failed")
		}
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Order not completed on PayPal's end"})
	}

	net, fee := payments.SplitGross(payment.Amount, h.commissionRate)
	if err := h.payments.MarkCaptured(c.UserContext(), payment.ID, captured.CaptureID, net, fee); err != nil {
		h.log.Error().Err(err).
			Str("payment_id", payment.ID.String()).
			Str("capture_id", captured.CaptureID).
			Msg("capture succeeded but payment record not updated")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment"})
	}

	h.log.Info().
		Str("payment_id", payment.ID.String()).
		Uint64("appointment_id", payment.AppointmentID).
		Float64("amount", payment.Amount).
		Msg("payment captured")
	return c.JSON(fiber.Map{"payment_id": payment.ID, "status": models.PaymentSucceeded, "mentor_net": net, "platform_fee": fee})
}
