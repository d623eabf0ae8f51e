package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/mentorship/configs"
	"github.com/anjiri1684/mentorship/booking"
	"github.com/anjiri1684/mentorship/database"
	"github.com/anjiri1684/mentorship/handlers"
	"github.com/anjiri1684/mentorship/jobs"
	"github.com/anjiri1684/mentorship/locks"
	"github.com/anjiri1684/mentorship/logger"
	"github.com/anjiri1684/mentorship/meetings"
	"github.com/anjiri1684/mentorship/notifications"
	"github.com/anjiri1684/mentorship/payments"
	"github.com/anjiri1684/mentorship/routes"
	"github.com/anjiri1684/mentorship/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	settings, err := config.Load()
	log := logger.Init("mentorship-api", settings.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(settings.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	store := database.NewStore(db)

	var (
		locker      locks.Locker = locks.NewLocalLocker()
		redisClient *redis.Client
	)
	if settings.RedisAddr != "" {
		redisClient, err = locks.NewRedisClient(settings.RedisAddr, settings.RedisUsername, settings.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Str("addr", settings.RedisAddr).Msg("failed to connect to redis")
		}
		locker = locks.NewRedisLocker(redisClient, settings.LockTTL)
		log.Info().Str("addr", settings.RedisAddr).Msg("using redis locks")
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process locks; run a single instance only")
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(logger.Component(log, "ws-hub"))
	go hub.Run(hubCtx)

	batcher := notifications.NewEmailBatcher(
		settings.EmailBatchWindow,
		newMailer(settings, log),
		store,
		logger.Component(log, "email-batcher"),
	)
	go batcher.Run(context.Background())

	dispatcher := notifications.NewDispatcher(store, batcher, hub, logger.Component(log, "notifications"))

	paypal := payments.NewPayPal(settings.PayPalBaseURL, settings.PayPalClientID, settings.PayPalClientSecret)
	if settings.PayPalClientID == "" {
		log.Warn().Msg("PayPal credentials not set, checkout and refunds will fail")
	}
	reconciler := payments.NewReconciler(store, paypal, locker, store, logger.Component(log, "payments"))

	var conferencer meetings.Conferencer
	creds := meetings.GoogleCredentials{
		ClientID:     settings.GoogleClientID,
		ClientSecret: settings.GoogleClientSecret,
		RefreshToken: settings.GoogleRefreshToken,
		CalendarID:   settings.GoogleCalendarID,
	}
	if creds.Configured() {
		calendar, err := meetings.NewGoogleCalendar(ctx, creds)
		if err != nil {
			log.Error().Err(err).Msg("google calendar unavailable, fallback meeting links will be used")
		} else {
			conferencer = calendar
		}
	}
	issuer := meetings.NewIssuer(conferencer, store, logger.Component(log, "meetings"))

	svc := booking.NewService(booking.Deps{
		Appointments: store,
		Availability: store,
		Directory:    store,
		Locker:       locker,
		Links:        issuer,
		Refunds:      reconciler,
		Notifier:     dispatcher,
	}, booking.Options{
		Location:           settings.Location(),
		FallbackMeetingURL: settings.FallbackMeetingURL,
	}, logger.Component(log, "booking"))

	scheduler := cron.New(cron.WithLocation(settings.Location()))
	if _, err := scheduler.AddJob(settings.ReminderCron, jobs.NewReminderJob(store, dispatcher, logger.Component(log, "reminders"))); err != nil {
		log.Fatal().Err(err).Str("spec", settings.ReminderCron).Msg("invalid reminder schedule")
	}
	if _, err := scheduler.AddJob(settings.RefundSweepCron, jobs.NewRefundSweep(store, reconciler, dispatcher, logger.Component(log, "refund-sweep"))); err != nil {
		log.Fatal().Err(err).Str("spec", settings.RefundSweepCron).Msg("invalid refund sweep schedule")
	}
	scheduler.Start()
	log.Info().Msg("cron jobs scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "Mentorship API",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Int("code", code).Msg("request failed")
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   settings.TimeZone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.Setup(app, routes.Handlers{
		Bookings:      handlers.NewBookingHandler(svc, logger.Component(log, "http")),
		Availability:  handlers.NewAvailabilityHandler(store),
		Payments:      handlers.NewPaymentHandler(store, store, store, paypal, settings.CommissionRate, logger.Component(log, "http")),
		Notifications: handlers.NewNotificationHandler(store),
		WS:            handlers.NewWSHandler(hub, settings.JWTSecret, logger.Component(log, "ws")),
	}, settings.JWTSecret)

	go func() {
		log.Info().Str("port", settings.HTTPPort).Msg("server is running")
		if err := app.Listen(":" + settings.HTTPPort); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := app.ShutdownWithTimeout(settings.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-scheduler.Stop().Done()
	batcher.Close()
	stopHub()

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		log.Error().Err(err).Msg("closing database")
	}
	log.Info().Msg("shutdown complete")
}

func newMailer(settings config.Settings, log zerolog.Logger) notifications.Mailer {
	switch settings.MailProvider {
	case "brevo":
		return notifications.NewBrevoMailer(settings.BrevoAPIKey, settings.EmailSender, settings.EmailSenderName)
	case "resend":
		return notifications.NewResendMailer(settings.ResendAPIKey, settings.EmailSender, settings.EmailSenderName)
	}
	log.Warn().Str("provider", settings.MailProvider).Msg("no mail provider configured, emails will only be logged")
	return notifications.LogMailer{Log: logger.Component(log, "mailer")}
}
