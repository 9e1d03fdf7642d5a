package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const disasterColumns = `id, name, source, category, severity, geometry, start_time, end_time, active, attributes, created_at`

// AddDisaster inserts d. Adding an existing id is an error.
func (s *SQLiteDB) AddDisaster(ctx context.Context, d *models.Disaster) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := d.SetGeometry(d.Geometry); err != nil {
		return err
	}
	geom, err := encodeGeometry(d.Geometry)
	if err != nil {
		return err
	}
	attrs, err := models.MarshalAttributes(d.Attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}
	var attrsCol any
	if attrs != nil {
		attrsCol = string(attrs)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO disasters (id, name, source, category, severity, severity_rank, geometry,
			centroid_lon, centroid_lat, start_time, end_time, active, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Source, string(d.Category), string(d.Severity), d.Severity.Rank(), geom,
		d.Centroid.Lon(), d.Centroid.Lat(), d.StartTime.UTC(), nullTime(d.EndTime), d.Active, attrsCol, d.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting disaster %s: %w", d.ID, err)
	}
	return nil
}

func (s *SQLiteDB) GetDisaster(ctx context.Context, id string) (*models.Disaster, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+disasterColumns+` FROM disasters WHERE id = ?`, id)
	d, err := scanDisaster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engineerr.NotFound("get disaster", "disaster %q", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteDB) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM disasters WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking disaster %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "start_time >= ?")
		args = append(args, opts.Since.UTC())
	}
	if opts.Category != nil {
		where = append(where, "category = ?")
		args = append(args, string(*opts.Category))
	}
	if opts.MinSeverity != nil {
		where = append(where, "severity_rank >= ?")
		args = append(args, opts.MinSeverity.Rank())
	}
	if opts.ActiveOnly {
		where = append(where, "active = 1")
	}

	query := `SELECT ` + disasterColumns + ` FROM disasters`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing disasters: %w", err)
	}
	defer rows.Close()

	var out []models.Disaster
	for rows.Next() {
		d, err := scanDisaster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDisaster removes a disaster and, through the foreign key, its assessments.
func (s *SQLiteDB) DeleteDisaster(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM disasters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting disaster %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engineerr.NotFound("delete disaster", "disaster %q", id)
	}
	return nil
}

// LoadDisasters returns every stored disaster for snapshot building.
func (s *SQLiteDB) LoadDisasters(ctx context.Context) ([]models.Disaster, error) {
	return s.ListDisasters(ctx, Filter{})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDisaster(row scanner) (*models.Disaster, error) {
	var (
		d                  models.Disaster
		category, severity string
		geom               string
		endTime            sql.NullTime
		attrs              sql.NullString
	)
	err := row.Scan(&d.ID, &d.Name, &d.Source, &category, &severity, &geom,
		&d.StartTime, &endTime, &d.Active, &attrs, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Category = models.Category(category)
	d.Severity = models.Severity(severity)
	if endTime.Valid {
		t := endTime.Time
		d.EndTime = &t
	}
	if attrs.Valid {
		if d.Attributes, err = models.UnmarshalAttributes([]byte(attrs.String)); err != nil {
			return nil, fmt.Errorf("disaster %s: %w", d.ID, err)
		}
	}

	g, err := decodeGeometry(geom)
	if err != nil {
		return nil, fmt.Errorf("disaster %s: %w", d.ID, err)
	}
	if err := d.SetGeometry(g); err != nil {
		return nil, fmt.Errorf("disaster %s: %w", d.ID, err)
	}
	return &d, nil
}
