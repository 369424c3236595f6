package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

func (s *SQLiteDB) AddFacility(ctx context.Context, f *models.Facility) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facilities (id, position, latitude, longitude, type, name, capacity)
		VALUES (?, (SELECT COUNT(*) FROM facilities), ?, ?, ?, ?, ?)`,
		f.ID, f.Lat, f.Lng, string(f.Type), f.Name, f.Capacity,
	)
	if err != nil {
		return fmt.Errorf("error inserting facility: %w", err)
	}
	return nil
}

func (s *SQLiteDB) facilityExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facilities WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking facility: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListFacilities(ctx context.Context, opts FacilityFilter) ([]models.Facility, error) {
	var where []string
	var args []any

	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}

	query := `SELECT id, latitude, longitude, type, name, capacity FROM facilities`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY position"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing facilities: %w", err)
	}
	defer rows.Close()

	facilities := []models.Facility{}
	for rows.Next() {
		var f models.Facility
		var facilityType string
		if err := rows.Scan(&f.ID, &f.Lat, &f.Lng, &facilityType, &f.Name, &f.Capacity); err != nil {
			return nil, fmt.Errorf("error reading facility: %w", err)
		}
		f.Type = models.FacilityType(facilityType)
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}
