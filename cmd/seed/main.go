// Command seed populates a Postgres clinic database with doctors and their
// availability calendars. The first doctor is always the clinic's resident
// dentist; the rest are generated.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elitedental/clinic-server/internal/clinic"
	"github.com/elitedental/clinic-server/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	doctors := flag.Int("doctors", 4, "number of doctors to seed")
	days := flag.Int("days", 30, "days of availability per doctor, starting today")
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 0)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if *migrate {
		if err := db.Migrate(context.Background(), pool, "migrations"); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	gofakeit.Seed(time.Now().UnixNano())

	ids, err := seedDoctors(context.Background(), pool, *doctors)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, ids, *days); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]int, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Cosmetic Dentistry",
		"Orthodontics",
		"Periodontics",
		"Endodontics",
		"Pediatric Dentistry",
		"Oral Surgery",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int, 0, count)

	var firstID int
	err = tx.QueryRow(ctx, `
		INSERT INTO doctors (name, specialty, bio, education, experience)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		"Dr. Anas Alhamou",
		"General & Cosmetic Dentistry",
		"Dedicated to providing gentle, comprehensive dental care for the whole family.",
		"DDS, University of Damascus",
		12,
	).Scan(&firstID)
	if err != nil {
		return nil, err
	}
	ids = append(ids, firstID)

	for i := 1; i < count; i++ {
		var id int
		err := tx.QueryRow(ctx, `
			INSERT INTO doctors (name, specialty, bio, education, experience)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			"Dr. "+gofakeit.Name(),
			specialties[gofakeit.Number(0, len(specialties)-1)],
			gofakeit.Sentence(12),
			"DDS, "+gofakeit.City()+" School of Dentistry",
			gofakeit.Number(2, 25),
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctorIDs []int, days int) error {
	log.Printf("seeding %d days of availability for %d doctors", days, len(doctorIDs))

	slots := clinic.DefaultTimeSlots()
	today := time.Now()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		for d := 0; d < days; d++ {
			date := today.AddDate(0, 0, d).Format(clinic.DateLayout)
			_, err := tx.Exec(ctx, `
				INSERT INTO availability (doctor_id, date, time_slots)
				VALUES ($1, $2, $3)
				ON CONFLICT (doctor_id, date) DO NOTHING
			`, doctorID, date, slots)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}
