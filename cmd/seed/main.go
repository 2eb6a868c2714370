package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedWeeklyTemplate(context.Background(), pool); err != nil {
		log.Fatalf("seed weekly template: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding service catalog")

	type svc struct {
		id          string
		name        string
		duration    int
		price       int64
		onlinePrice *int64
		modality    *string
	}

	online := func(cents int64) *int64 { return &cents }
	onlineOnly := "online"

	services := []svc{
		{id: "anamnesis", name: "Intake interview", duration: 30, price: 0, modality: &onlineOnly},
		{id: "consultation", name: "Clinical consultation", duration: 50, price: 18000, onlinePrice: online(15000)},
		{id: "followup", name: "Follow-up session", duration: 30, price: 12000, onlinePrice: online(10000)},
		{id: "assessment", name: "Full assessment", duration: 90, price: 35000},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, duration_mins, price_cents, online_price_cents, fixed_modality, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    duration_mins = EXCLUDED.duration_mins,
			    price_cents = EXCLUDED.price_cents,
			    online_price_cents = EXCLUDED.online_price_cents,
			    fixed_modality = EXCLUDED.fixed_modality,
			    updated_at = now()
		`, s.id, s.name, s.duration, s.price, s.onlinePrice, s.modality)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}

func seedWeeklyTemplate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding weekly template")

	// Monday through Friday, half-hour grid with a lunch break.
	times := []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for weekday := 1; weekday <= 5; weekday++ {
		for _, t := range times {
			_, err := tx.Exec(ctx, `
				INSERT INTO weekly_template (weekday, slot_time)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, weekday, t)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("weekly template seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
