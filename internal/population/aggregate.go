// Package population sums the census blocks a disaster touches.
//
// A block counts when its polygon has any non-empty intersection with the
// disaster geometry, and then it contributes its whole population. There is
// no area weighting: loss and vulnerability scores are calibrated against
// whole-block counts.
package population

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/geometry"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// BlockIndex returns candidate blocks whose bounding boxes meet a bound.
type BlockIndex interface {
	BlocksInBound(b orb.Bound) []*models.CensusBlock
}

type Result struct {
	TotalPopulation int `json:"total_population"`
	Households      int `json:"households"`
	Elderly         int `json:"elderly"`
	Children        int `json:"children"`
	Disabled        int `json:"disabled"`
	LowIncome       int `json:"low_income"`
	BlockCount      int `json:"block_count"`
}

func (r *Result) add(b *models.CensusBlock) {
	r.TotalPopulation += b.Population
	r.Households += b.Households
	r.Elderly += b.Elderly
	r.Children += b.Children
	r.Disabled += b.Disabled
	r.LowIncome += b.LowIncome
	r.BlockCount++
}

// Aggregate sums every block intersecting g. No hits is a zero Result.
func Aggregate(ctx context.Context, g orb.Geometry, blocks BlockIndex) (Result, error) {
	prepared, err := geometry.Prepare(g)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, b := range blocks.BlocksInBound(prepared.Bound()) {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if prepared.Intersects(b.Geometry) {
			res.add(b)
		}
	}
	return res, nil
}
