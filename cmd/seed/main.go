package main

import (
	"context"
	"fmt"
	"os"
	"time"

	config "github.com/anjiri1684/mentorship/configs"
	"github.com/anjiri1684/mentorship/database"
	"github.com/anjiri1684/mentorship/logger"
	"github.com/anjiri1684/mentorship/models"
	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"
)

var topics = []string{
	"Backend Engineering",
	"Product Management",
	"Data Science",
	"UX Design",
	"Career Growth",
	"Engineering Leadership",
	"Cloud Infrastructure",
	"Startup Fundraising",
}

// weekly windows handed out to seeded mentors, as day-of-week and HH:MM bounds
var windows = []struct {
	day        int
	start, end string
}{
	{1, "09:00", "12:00"},
	{2, "14:00", "18:00"},
	{3, "09:00", "11:00"},
	{4, "16:00", "20:00"},
	{5, "10:00", "13:00"},
	{6, "09:00", "12:00"},
}

func main() {
	log := logger.Init("mentorship-seed", "development")

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.ConnectDB(settings.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	gofakeit.Seed(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mentors := envInt("SEED_MENTORS", 25)
	mentees := envInt("SEED_MENTEES", 200)

	if err := seedMentors(ctx, db, mentors); err != nil {
		log.Fatal().Err(err).Msg("seed mentors")
	}
	if err := seedMentees(ctx, db, mentees); err != nil {
		log.Fatal().Err(err).Msg("seed mentees")
	}
	log.Info().Int("mentors", mentors).Int("mentees", mentees).Msg("seed complete")
}

func seedMentors(ctx context.Context, db *gorm.DB, count int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < count; i++ {
			user := models.User{
				FullName: gofakeit.Name(),
				Email:    uniqueEmail("mentor", i),
				Role:     models.RoleMentor,
				IsActive: true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}

			topic := topics[gofakeit.Number(0, len(topics)-1)]
			headline := fmt.Sprintf("%s, mentoring in %s", gofakeit.JobTitle(), topic)
			bio := fmt.Sprintf("I help people grow in %s. Bring your questions and we will work through them together.", topic)
			mentor := models.Mentor{
				UserID:          user.ID,
				Headline:        &headline,
				Bio:             &bio,
				PricePerSession: float64(gofakeit.Number(3, 12) * 10),
				Currency:        "EUR",
			}
			if err := tx.Create(&mentor).Error; err != nil {
				return err
			}

			first := gofakeit.Number(0, len(windows)-1)
			for j := 0; j < 3; j++ {
				w := windows[(first+j)%len(windows)]
				slot := models.AvailabilitySlot{MentorID: user.ID, DayOfWeek: w.day, StartTime: w.start, EndTime: w.end}
				if err := tx.Create(&slot).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func seedMentees(ctx context.Context, db *gorm.DB, count int) error {
	const batchSize = 100

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, models.User{
			FullName: gofakeit.Name(),
			Email:    uniqueEmail("mentee", i),
			Role:     models.RoleMentee,
			IsActive: true,
		})
	}
	return db.WithContext(ctx).CreateInBatches(users, batchSize).Error
}

// uniqueEmail keeps repeated seed runs from colliding on the unique index.
func uniqueEmail(prefix string, i int) string {
	return fmt.Sprintf("%s+%d-%d-%s", prefix, time.Now().Unix(), i, gofakeit.Email())
}

func envInt(key string, def int) int {
	var n int
	if _, err := fmt.Sscanf(os.Getenv(key), "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}
