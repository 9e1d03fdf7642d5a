package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

func (s *SQLiteDB) UpsertSite(ctx context.Context, site *models.InfrastructureSite) error {
	if err := site.Validate(); err != nil {
		return err
	}
	var capacity any
	if site.Capacity != nil {
		capacity = *site.Capacity
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO infrastructure (id, name, category, longitude, latitude, capacity, operational, phone, email, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			longitude = excluded.longitude,
			latitude = excluded.latitude,
			capacity = excluded.capacity,
			operational = excluded.operational,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address`,
		site.ID, site.Name, string(site.Category), site.Location.Lon(), site.Location.Lat(), capacity,
		site.Operational, site.Contact.Phone, site.Contact.Email, site.Contact.Address,
	)
	if err != nil {
		return fmt.Errorf("error upserting site %s: %w", site.ID, err)
	}
	return nil
}

// ListSites returns sites ordered by id, optionally of one category.
func (s *SQLiteDB) ListSites(ctx context.Context, category *models.SiteCategory) ([]models.InfrastructureSite, error) {
	query := `SELECT id, name, category, longitude, latitude, capacity, operational, phone, email, address FROM infrastructure`
	var args []any
	if category != nil {
		query += ` WHERE category = ?`
		args = append(args, string(*category))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing infrastructure: %w", err)
	}
	defer rows.Close()

	var out []models.InfrastructureSite
	for rows.Next() {
		var (
			site                  models.InfrastructureSite
			category              string
			lon, lat              float64
			capacity              sql.NullInt64
			phone, email, address sql.NullString
		)
		if err := rows.Scan(&site.ID, &site.Name, &category, &lon, &lat, &capacity,
			&site.Operational, &phone, &email, &address); err != nil {
			return nil, err
		}
		site.Category = models.SiteCategory(category)
		site.Location = orb.Point{lon, lat}
		if capacity.Valid {
			c := int(capacity.Int64)
			site.Capacity = &c
		}
		site.Contact = models.Contact{Phone: phone.String, Email: email.String, Address: address.String}
		out = append(out, site)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) SetOperational(ctx context.Context, id string, operational bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE infrastructure SET operational = ? WHERE id = ?`, operational, id)
	if err != nil {
		return fmt.Errorf("error updating site %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engineerr.NotFound("set operational", "site %q", id)
	}
	return nil
}

func (s *SQLiteDB) LoadSites(ctx context.Context) ([]models.InfrastructureSite, error) {
	return s.ListSites(ctx, nil)
}
