package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

var ErrNotFound = errors.New("not found")

type ZoneFilter struct {
	Limit        int
	Offset       int
	Type         *models.ZoneType
	RiskLevel    *models.RiskLevel
	MinRiskLevel *models.RiskLevel // >= this level (e.g. medium includes medium and high)
}

type FacilityFilter struct {
	Limit int
	Type  *models.FacilityType
}

type ZoneRepository interface {
	AddZone(ctx context.Context, z *models.DisasterZone) error
	GetZone(ctx context.Context, id string) (*models.DisasterZone, error)
	ListZones(ctx context.Context, opts ZoneFilter) ([]models.DisasterZone, error)
}

type FacilityRepository interface {
	AddFacility(ctx context.Context, f *models.Facility) error
	ListFacilities(ctx context.Context, opts FacilityFilter) ([]models.Facility, error)
}
