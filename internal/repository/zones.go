package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

const zoneColumns = `id, latitude, longitude, radius_meters, risk_level, type, population,
	nearest_hospital, last_updated, risk_score, next_update`

func (s *SQLiteDB) AddZone(ctx context.Context, z *models.DisasterZone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var riskScore sql.NullFloat64
	var nextUpdate sql.NullInt64
	if z.Prediction != nil {
		riskScore = sql.NullFloat64{Float64: z.Prediction.RiskScore, Valid: true}
		nextUpdate = sql.NullInt64{Int64: z.Prediction.NextUpdate.UnixMilli(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO zones (id, position, latitude, longitude, radius_meters, risk_level, risk_rank,
			type, population, nearest_hospital, last_updated, risk_score, next_update)
		VALUES (?, (SELECT COUNT(*) FROM zones), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		z.ID, z.Lat, z.Lng, z.RadiusMeters, string(z.RiskLevel), z.RiskLevel.Rank(),
		string(z.Type), z.Population, z.NearestHospital, z.LastUpdated.UnixMilli(),
		riskScore, nextUpdate,
	)
	if err != nil {
		return fmt.Errorf("error inserting zone: %w", err)
	}

	if z.Prediction != nil {
		for i, factor := range z.Prediction.Factors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO zone_factors (zone_id, position, factor) VALUES (?, ?, ?)`,
				z.ID, i, factor,
			); err != nil {
				return fmt.Errorf("error inserting zone factor: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) GetZone(ctx context.Context, id string) (*models.DisasterZone, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading zone: %w", err)
	}

	if err := s.loadFactors(ctx, []*models.DisasterZone{&z}); err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *SQLiteDB) ListZones(ctx context.Context, opts ZoneFilter) ([]models.DisasterZone, error) {
	var where []string
	var args []any

	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if opts.RiskLevel != nil {
		where = append(where, "risk_level = ?")
		args = append(args, string(*opts.RiskLevel))
	}
	if opts.MinRiskLevel != nil {
		where = append(where, "risk_rank >= ?")
		args = append(args, opts.MinRiskLevel.Rank())
	}

	query := `SELECT ` + zoneColumns + ` FROM zones`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY position"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing zones: %w", err)
	}
	defer rows.Close()

	zones := []models.DisasterZone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("error reading zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ptrs := make([]*models.DisasterZone, len(zones))
	for i := range zones {
		ptrs[i] = &zones[i]
	}
	if err := s.loadFactors(ctx, ptrs); err != nil {
		return nil, err
	}
	return zones, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanZone(row scanner) (models.DisasterZone, error) {
	var (
		z          models.DisasterZone
		riskLevel  string
		zoneType   string
		hospital   sql.NullString
		updated    int64
		riskScore  sql.NullFloat64
		nextUpdate sql.NullInt64
	)
	err := row.Scan(&z.ID, &z.Lat, &z.Lng, &z.RadiusMeters, &riskLevel, &zoneType,
		&z.Population, &hospital, &updated, &riskScore, &nextUpdate)
	if err != nil {
		return z, err
	}

	z.RiskLevel = models.RiskLevel(riskLevel)
	z.Type = models.ZoneType(zoneType)
	z.NearestHospital = hospital.String
	z.LastUpdated = time.UnixMilli(updated).UTC()
	if riskScore.Valid {
		z.Prediction = &models.Prediction{
			RiskScore:  riskScore.Float64,
			NextUpdate: time.UnixMilli(nextUpdate.Int64).UTC(),
		}
	}
	return z, nil
}

func (s *SQLiteDB) loadFactors(ctx context.Context, zones []*models.DisasterZone) error {
	byID := make(map[string]*models.DisasterZone, len(zones))
	ids := make([]any, 0, len(zones))
	for _, z := range zones {
		if z.Prediction == nil {
			continue
		}
		z.Prediction.Factors = []string{}
		byID[z.ID] = z
		ids = append(ids, z.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT zone_id, factor FROM zone_factors WHERE zone_id IN (`+placeholders+`) ORDER BY zone_id, position`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("error loading zone factors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, factor string
		if err := rows.Scan(&id, &factor); err != nil {
			return fmt.Errorf("error reading zone factor: %w", err)
		}
		z := byID[id]
		z.Prediction.Factors = append(z.Prediction.Factors, factor)
	}
	return rows.Err()
}
