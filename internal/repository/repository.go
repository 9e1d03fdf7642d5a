package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

type Filter struct {
	Limit       int
	Offset      int
	Since       *time.Time // start_time >= Since
	Category    *models.Category
	MinSeverity *models.Severity // >= this severity (e.g., severe includes severe and extreme)
	ActiveOnly  bool
}

type DisasterRepository interface {
	AddDisaster(ctx context.Context, d *models.Disaster) error
	GetDisaster(ctx context.Context, id string) (*models.Disaster, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error)
	DeleteDisaster(ctx context.Context, id string) error
}

type CensusRepository interface {
	AddCensusBlocks(ctx context.Context, blocks []models.CensusBlock) (int, error)
	ListCensusBlocks(ctx context.Context, year int) ([]models.CensusBlock, error)
}

type InfrastructureRepository interface {
	UpsertSite(ctx context.Context, s *models.InfrastructureSite) error
	ListSites(ctx context.Context, category *models.SiteCategory) ([]models.InfrastructureSite, error)
	SetOperational(ctx context.Context, id string, operational bool) error
}

type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, a *models.ImpactAssessment) error
	ListAssessments(ctx context.Context, disasterID string, limit int) ([]models.ImpactAssessment, error)
}
