package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// AddCensusBlocks validates and upserts blocks in one transaction; either
// every block is stored or none is.
func (s *SQLiteDB) AddCensusBlocks(ctx context.Context, blocks []models.CensusBlock) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO census_blocks (id, year, population, households, elderly, children, disabled, low_income, geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			year = excluded.year,
			population = excluded.population,
			households = excluded.households,
			elderly = excluded.elderly,
			children = excluded.children,
			disabled = excluded.disabled,
			low_income = excluded.low_income,
			geometry = excluded.geometry`)
	if err != nil {
		return 0, fmt.Errorf("error preparing census insert: %w", err)
	}
	defer stmt.Close()

	for i := range blocks {
		b := &blocks[i]
		if err := b.SetGeometry(b.Geometry); err != nil {
			return 0, err
		}
		if err := b.Validate(); err != nil {
			return 0, err
		}
		geom, err := encodeGeometry(b.Geometry)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, b.ID, b.Year, b.Population, b.Households,
			b.Elderly, b.Children, b.Disabled, b.LowIncome, geom); err != nil {
			return 0, fmt.Errorf("error inserting census block %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing census blocks: %w", err)
	}
	return len(blocks), nil
}

// ListCensusBlocks returns blocks of one data vintage, or all when year is 0.
func (s *SQLiteDB) ListCensusBlocks(ctx context.Context, year int) ([]models.CensusBlock, error) {
	query := `SELECT id, year, population, households, elderly, children, disabled, low_income, geometry FROM census_blocks`
	var args []any
	if year != 0 {
		query += ` WHERE year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing census blocks: %w", err)
	}
	defer rows.Close()

	var out []models.CensusBlock
	for rows.Next() {
		var (
			b    models.CensusBlock
			pop  int
			geom string
		)
		if err := rows.Scan(&b.ID, &b.Year, &pop, &b.Households, &b.Elderly, &b.Children,
			&b.Disabled, &b.LowIncome, &geom); err != nil {
			return nil, err
		}
		g, err := decodeGeometry(geom)
		if err != nil {
			return nil, fmt.Errorf("census block %s: %w", b.ID, err)
		}
		if err := b.SetGeometry(g); err != nil {
			return nil, fmt.Errorf("census block %s: %w", b.ID, err)
		}
		b.SetPopulation(pop)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) LoadCensusBlocks(ctx context.Context) ([]models.CensusBlock, error) {
	return s.ListCensusBlocks(ctx, 0)
}
