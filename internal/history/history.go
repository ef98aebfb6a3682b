package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/infrastructure/database"
)

// Query limits for Recent.
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// ErrCityRequired is returned when a lookup has no city.
var ErrCityRequired = errors.New("history: city required")

// Lookup is one served reply.
type Lookup struct {
	ID          int64        `json:"id"`
	RequestID   string       `json:"request_id"`
	City        catalog.City `json:"city"`
	Temperature int          `json:"temperature"`
	Humidity    int          `json:"humidity"`
	Mood        catalog.Mood `json:"mood"`
	ServedAt    time.Time    `json:"served_at"`
}

// Repository stores lookups in the "lookups" table.
type Repository struct {
	db *database.DB
}

// NewRepository wraps an open, migrated database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts a lookup. A zero ServedAt is replaced with the current time.
func (r *Repository) Record(ctx context.Context, l Lookup) error {
	if l.City == "" {
		return ErrCityRequired
	}
	if l.ServedAt.IsZero() {
		l.ServedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lookups (request_id, city, temperature, humidity, mood, served_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.RequestID, string(l.City), l.Temperature, l.Humidity, string(l.Mood),
		l.ServedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting lookup: %w", err)
	}
	return nil
}

// Recent returns up to limit lookups for city, newest first. A limit
// outside (0, MaxLimit] falls back to DefaultLimit or MaxLimit.
func (r *Repository) Recent(ctx context.Context, city catalog.City, limit int) ([]Lookup, error) {
	if city == "" {
		return nil, ErrCityRequired
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, city, temperature, humidity, mood, served_at
		FROM lookups
		WHERE city = ?
		ORDER BY id DESC
		LIMIT ?`,
		string(city), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying lookups: %w", err)
	}
	defer rows.Close()

	lookups := make([]Lookup, 0, limit)
	for rows.Next() {
		var (
			l        Lookup
			cityStr  string
			moodStr  string
			servedAt string
		)
		if err := rows.Scan(&l.ID, &l.RequestID, &cityStr, &l.Temperature, &l.Humidity, &moodStr, &servedAt); err != nil {
			return nil, fmt.Errorf("scanning lookup: %w", err)
		}
		l.City = catalog.City(cityStr)
		l.Mood = catalog.Mood(moodStr)
		l.ServedAt, _ = time.Parse(time.RFC3339Nano, servedAt) //nolint:errcheck // Format is controlled
		lookups = append(lookups, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lookups: %w", err)
	}
	return lookups, nil
}

// Count returns the number of lookups stored for city.
func (r *Repository) Count(ctx context.Context, city catalog.City) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookups WHERE city = ?", string(city)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting lookups: %w", err)
	}
	return n, nil
}
