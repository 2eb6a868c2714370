package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/booking/internal/config"
	"github.com/clinicdesk/booking/internal/db"
)

// The simulator hammers one slot per round with concurrent booking requests
// from distinct patients. A correct service yields exactly one 201 per round;
// everything else must be a 409. Any round with two successes is a
// double-booking and fails the run.

type SimConfig struct {
	APIBaseURL   string
	Rounds       int
	Contenders   int
	PatientLimit int
	ServiceID    string
	PostgresDSN  string
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.latencies))
	copy(latencies, m.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	patients, err := loadPatients(ctx, pgPool, cfg.PatientLimit)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(patients) < cfg.Contenders {
		log.Fatalf("need at least %d patients, have %d (run cmd/seed first)", cfg.Contenders, len(patients))
	}

	slots, err := loadUpcomingSlots(ctx, pgPool, cfg.Rounds)
	if err != nil {
		log.Fatalf("load slots: %v", err)
	}
	if len(slots) < cfg.Rounds {
		log.Fatalf("need %d free upcoming slots, have %d", cfg.Rounds, len(slots))
	}

	log.Printf("config: rounds=%d contenders=%d patients=%d", cfg.Rounds, cfg.Contenders, len(patients))

	client := &http.Client{Timeout: 10 * time.Second}
	metrics := &Metrics{}
	doubleBookings := 0

	for round := 0; round < cfg.Rounds; round++ {
		target := slots[round]
		successes := runRound(client, cfg, metrics, patients, target)

		if successes != 1 {
			log.Printf("ROUND %d FAILED: slot %s %s got %d successes", round, target.date, target.slotTime, successes)
			if successes > 1 {
				doubleBookings++
			}
		}
	}

	printReport(metrics, doubleBookings)

	if doubleBookings > 0 {
		os.Exit(1)
	}
}

type targetSlot struct {
	date     string
	slotTime string
}

// runRound fires Contenders concurrent bookings for one slot and returns how
// many were accepted.
func runRound(client *http.Client, cfg SimConfig, metrics *Metrics, patients []uuid.UUID, target targetSlot) int {
	var (
		wg        sync.WaitGroup
		successes int64
		start     = make(chan struct{})
	)

	for i := 0; i < cfg.Contenders; i++ {
		patient := patients[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			body, _ := json.Marshal(map[string]any{
				"patient_id": patient.String(),
				"date":       target.date,
				"time":       target.slotTime,
				"service_id": cfg.ServiceID,
				"modality":   "online",
			})

			began := time.Now()
			resp, err := client.Post(cfg.APIBaseURL+"/appointments", "application/json", bytes.NewReader(body))
			latency := time.Since(began)
			if err != nil {
				metrics.Record(latency, 0)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			metrics.Record(latency, resp.StatusCode)
			if resp.StatusCode == http.StatusCreated {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	return int(successes)
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM patients ORDER BY created_at LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadUpcomingSlots picks free template slots in the next four weeks, one per
// contention round.
func loadUpcomingSlots(ctx context.Context, pool *pgxpool.Pool, n int) ([]targetSlot, error) {
	rows, err := pool.Query(ctx, `
		SELECT d::date::text, wt.slot_time
		FROM generate_series(current_date + 1, current_date + 28, interval '1 day') AS d
		JOIN weekly_template wt ON wt.weekday = EXTRACT(DOW FROM d)::smallint
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.appt_date = d::date
			  AND a.slot_time = wt.slot_time
			  AND a.status IN ('scheduled', 'confirmed')
		)
		ORDER BY d, wt.slot_time
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []targetSlot
	for rows.Next() {
		var s targetSlot
		if err := rows.Scan(&s.date, &s.slotTime); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func printReport(metrics *Metrics, doubleBookings int) {
	avg, p50, p95 := metrics.Stats()

	fmt.Println()
	fmt.Println("=== contention report ===")
	fmt.Printf("requests:        %d\n", atomic.LoadInt64(&metrics.Total))
	fmt.Printf("accepted:        %d\n", atomic.LoadInt64(&metrics.Success))
	fmt.Printf("slot conflicts:  %d\n", atomic.LoadInt64(&metrics.Conflict))
	fmt.Printf("errors:          %d\n", atomic.LoadInt64(&metrics.Error))
	fmt.Printf("double bookings: %d\n", doubleBookings)
	fmt.Printf("latency avg=%s p50=%s p95=%s\n", avg, p50, p95)

	if doubleBookings == 0 {
		fmt.Println("invariant held: at most one success per slot")
	} else {
		fmt.Println("INVARIANT VIOLATED")
	}
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Rounds:       getInt("SIM_ROUNDS", 20),
		Contenders:   getInt("SIM_CONTENDERS", 25),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		ServiceID:    getEnv("SIM_SERVICE_ID", "consultation"),
		PostgresDSN:  baseCfg.PostgresDSN,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
