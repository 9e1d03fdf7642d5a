package snapshot

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// Source reads the full record sets a snapshot is built from.
type Source interface {
	LoadDisasters(ctx context.Context) ([]models.Disaster, error)
	LoadCensusBlocks(ctx context.Context) ([]models.CensusBlock, error)
	LoadSites(ctx context.Context) ([]models.InfrastructureSite, error)
}

// Load reads everything from src and builds a snapshot stamped with the
// clock's current time.
func Load(ctx context.Context, src Source, clock clockwork.Clock) (*Snapshot, error) {
	disasters, err := src.LoadDisasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading disasters: %w", err)
	}
	blocks, err := src.LoadCensusBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading census blocks: %w", err)
	}
	sites, err := src.LoadSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading infrastructure: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Build(disasters, blocks, sites, clock.Now())
}
