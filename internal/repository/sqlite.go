package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS zones (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			radius_meters REAL NOT NULL,
			risk_level TEXT NOT NULL,
			risk_rank INTEGER NOT NULL,
			type TEXT NOT NULL,
			population INTEGER NOT NULL DEFAULT 0,
			nearest_hospital TEXT,
			last_updated INTEGER NOT NULL,
			risk_score REAL,
			next_update INTEGER
		);

		CREATE TABLE IF NOT EXISTS zone_factors (
			zone_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			factor TEXT NOT NULL,
			PRIMARY KEY (zone_id, position),
			FOREIGN KEY (zone_id) REFERENCES zones(id)
		);

		CREATE TABLE IF NOT EXISTS facilities (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_zones_type ON zones(type);
		CREATE INDEX IF NOT EXISTS idx_zones_risk_rank ON zones(risk_rank);
		CREATE INDEX IF NOT EXISTS idx_facilities_type ON facilities(type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Seed loads zones and facilities that are not stored yet. Existing rows are
// left untouched, so seeding on every start is safe.
func (s *SQLiteDB) Seed(ctx context.Context, zones []models.DisasterZone, facilities []models.Facility) (int, error) {
	added := 0
	for i := range zones {
		_, err := s.GetZone(ctx, zones[i].ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if err := s.AddZone(ctx, &zones[i]); err != nil {
			return added, fmt.Errorf("seeding zone %s: %w", zones[i].ID, err)
		}
		added++
	}
	for i := range facilities {
		exists, err := s.facilityExists(ctx, facilities[i].ID)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}
		if err := s.AddFacility(ctx, &facilities[i]); err != nil {
			return added, fmt.Errorf("seeding facility %s: %w", facilities[i].ID, err)
		}
		added++
	}
	slog.Info("seeded map data", "added", added, "zones", len(zones), "facilities", len(facilities))
	return added, nil
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
