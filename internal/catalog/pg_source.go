package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DB is the slice of pgxpool.Pool the source needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgSource reads the services and weekly_template tables. Every method hits
// Postgres; admin edits are visible on the next call.
type PgSource struct {
	db DB
}

func NewPgSource(db DB) *PgSource {
	return &PgSource{db: db}
}

func scanService(row pgx.Row) (*Service, error) {
	var (
		s            Service
		durationMins int
		modality     *string
	)

	err := row.Scan(
		&s.ID,
		&s.Name,
		&durationMins,
		&s.PriceCents,
		&s.OnlinePriceCents,
		&modality,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	s.Duration = time.Duration(durationMins) * time.Minute
	if modality != nil {
		m, err := ParseModality(*modality)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", s.ID, err)
		}
		s.FixedModality = &m
	}
	return &s, nil
}

func (src *PgSource) ServiceByID(ctx context.Context, id string) (*Service, error) {
	row := src.db.QueryRow(ctx, `
		SELECT id, name, duration_mins, price_cents, online_price_cents, fixed_modality
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (src *PgSource) Services(ctx context.Context) ([]Service, error) {
	rows, err := src.db.Query(ctx, `
		SELECT id, name, duration_mins, price_cents, online_price_cents, fixed_modality
		FROM services
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (src *PgSource) Template(ctx context.Context) (WeeklyTemplate, error) {
	rows, err := src.db.Query(ctx, `
		SELECT weekday, slot_time
		FROM weekly_template
		ORDER BY weekday, slot_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := make(map[time.Weekday][]string)
	for rows.Next() {
		var (
			weekday int16
			slot    string
		)
		if err := rows.Scan(&weekday, &slot); err != nil {
			return nil, err
		}
		day := time.Weekday(weekday)
		raw[day] = append(raw[day], slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tpl, err := NewWeeklyTemplate(raw)
	if err != nil {
		return nil, fmt.Errorf("weekly_template rows: %w", err)
	}
	return tpl, nil
}
