package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

var _ snapshot.Source = (*SQLiteDB)(nil)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func square(minLon, minLat, size float64) orb.Polygon {
	return orb.Polygon{{
		{minLon, minLat}, {minLon + size, minLat}, {minLon + size, minLat + size}, {minLon, minLat + size}, {minLon, minLat},
	}}
}

func testDisaster(id string, cat models.Category, sev models.Severity, start time.Time) *models.Disaster {
	return &models.Disaster{
		ID:        id,
		Name:      "test " + id,
		Source:    "test",
		Category:  cat,
		Severity:  sev,
		Geometry:  orb.Point{-118.2, 34.1},
		StartTime: start,
		Active:    true,
		CreatedAt: start,
	}
}

func TestSQLiteDB_AddAndGetDisaster(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	start := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	disaster := &models.Disaster{
		ID:         "cwfis_2024_042",
		Name:       "Donnie Creek",
		Source:     "CWFIS",
		Category:   models.CategoryWildfire,
		Severity:   models.SeveritySevere,
		Geometry:   square(-121, 57, 0.5),
		StartTime:  start,
		EndTime:    &end,
		Attributes: models.FireAttributes{TemperatureCelsius: 412.5, FireRadiativePower: 88},
		CreatedAt:  start,
	}

	if err := db.AddDisaster(ctx, disaster); err != nil {
		t.Fatalf("AddDisaster failed: %v", err)
	}

	got, err := db.GetDisaster(ctx, "cwfis_2024_042")
	if err != nil {
		t.Fatalf("GetDisaster failed: %v", err)
	}
	if got.Name != "Donnie Creek" {
		t.Errorf("expected name 'Donnie Creek', got '%s'", got.Name)
	}
	if _, ok := got.Geometry.(orb.Polygon); !ok {
		t.Fatalf("expected polygon geometry, got %T", got.Geometry)
	}
	if got.Centroid.Lat() < 57.2 || got.Centroid.Lat() > 57.3 {
		t.Errorf("expected centroid recomputed on read, got %v", got.Centroid)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("expected end time %v, got %v", end, got.EndTime)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("expected start time %v, got %v", start, got.StartTime)
	}
	attrs, ok := got.Attributes.(models.FireAttributes)
	if !ok || attrs.FireRadiativePower != 88 {
		t.Errorf("expected fire attributes with frp 88, got %#v", got.Attributes)
	}
}

func TestSQLiteDB_GetDisasterNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetDisaster(context.Background(), "missing")
	if !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSQLiteDB_Exists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	exists, err := db.Exists(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected false for nonexistent ID")
	}

	if err := db.AddDisaster(ctx, testDisaster("exists_test", models.CategoryFlood, models.SeverityMinor, time.Now())); err != nil {
		t.Fatalf("AddDisaster failed: %v", err)
	}

	exists, err = db.Exists(ctx, "exists_test")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected true for existing ID")
	}
}

func TestSQLiteDB_ListDisasters_WithFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	inactive := testDisaster("fl2", models.CategoryFlood, models.SeverityExtreme, now.Add(-48*time.Hour))
	inactive.Active = false
	disasters := []*models.Disaster{
		testDisaster("eq1", models.CategoryEarthquake, models.SeveritySevere, now),
		testDisaster("eq2", models.CategoryEarthquake, models.SeverityMinor, now.Add(-time.Hour)),
		testDisaster("fl1", models.CategoryFlood, models.SeverityModerate, now.Add(-24*time.Hour)),
		inactive,
	}
	for _, d := range disasters {
		if err := db.AddDisaster(ctx, d); err != nil {
			t.Fatalf("AddDisaster %s failed: %v", d.ID, err)
		}
	}

	eq := models.CategoryEarthquake
	results, err := db.ListDisasters(ctx, Filter{Category: &eq})
	if err != nil {
		t.Fatalf("ListDisasters failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 earthquakes, got %d", len(results))
	}

	// >= severe returns severe and extreme
	severe := models.SeveritySevere
	results, err = db.ListDisasters(ctx, Filter{MinSeverity: &severe})
	if err != nil {
		t.Fatalf("ListDisasters failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 disasters >= severe, got %d", len(results))
	}

	results, err = db.ListDisasters(ctx, Filter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListDisasters failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 active disasters, got %d", len(results))
	}

	since := now.Add(-2 * time.Hour)
	results, err = db.ListDisasters(ctx, Filter{Since: &since})
	if err != nil {
		t.Fatalf("ListDisasters failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 disasters since %v, got %d", since, len(results))
	}

	results, err = db.ListDisasters(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("ListDisasters failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "eq1" {
		t.Errorf("expected newest 2 disasters starting with eq1, got %d", len(results))
	}
}

func TestSQLiteDB_DuplicateAdd(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	disaster := testDisaster("dup_test", models.CategoryEarthquake, models.SeverityMinor, time.Now())

	if err := db.AddDisaster(ctx, disaster); err != nil {
		t.Fatalf("First AddDisaster failed: %v", err)
	}
	if err := db.AddDisaster(ctx, disaster); err == nil {
		t.Error("expected error for duplicate ID, got nil")
	}
}

func TestSQLiteDB_AddDisasterRejectsInvalidGeometry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	d := testDisaster("bad", models.CategoryFlood, models.SeverityMinor, time.Now())
	d.Geometry = orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}

	err := db.AddDisaster(context.Background(), d)
	if !errors.Is(err, engineerr.ErrInvalidGeometry) {
		t.Errorf("expected invalid geometry, got %v", err)
	}
}

func TestSQLiteDB_Assessments(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := db.AddDisaster(ctx, testDisaster("eq1", models.CategoryEarthquake, models.SeveritySevere, now)); err != nil {
		t.Fatalf("AddDisaster failed: %v", err)
	}

	for i, id := range []string{"a-old", "a-new"} {
		a := &models.ImpactAssessment{
			ID:                   id,
			DisasterID:           "eq1",
			Category:             models.CategoryEarthquake,
			AssessedAt:           now.Add(time.Duration(i) * time.Hour),
			AffectedPopulation:   1000 * (i + 1),
			EstimatedLoss:        80_000_000,
			InfrastructureCounts: map[models.SiteCategory]int{models.SiteHospital: 1},
			Zones: []models.EvacuationZone{
				{RadiusMeters: 1000, AreaSqKm: 3.14, Geometry: square(-118.21, 34.09, 0.02)},
			},
		}
		if err := db.SaveAssessment(ctx, a); err != nil {
			t.Fatalf("SaveAssessment %s failed: %v", id, err)
		}
	}

	got, err := db.ListAssessments(ctx, "eq1", 0)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 assessments, got %d", len(got))
	}
	if got[0].ID != "a-new" {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
	if got[0].InfrastructureCounts[models.SiteHospital] != 1 {
		t.Errorf("expected hospital count 1, got %v", got[0].InfrastructureCounts)
	}
	if len(got[0].Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(got[0].Zones))
	}
	if _, ok := got[0].Zones[0].Geometry.(orb.Polygon); !ok {
		t.Errorf("expected polygon zone, got %T", got[0].Zones[0].Geometry)
	}

	limited, err := db.ListAssessments(ctx, "eq1", 1)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 assessment with limit, got %d", len(limited))
	}
}

func TestSQLiteDB_SaveAssessmentRequiresDisaster(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.SaveAssessment(context.Background(), &models.ImpactAssessment{ID: "orphan", DisasterID: "missing", AssessedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key error, got nil")
	}
}

func TestSQLiteDB_DeleteDisasterCascades(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	if err := db.AddDisaster(ctx, testDisaster("eq1", models.CategoryEarthquake, models.SeveritySevere, now)); err != nil {
		t.Fatalf("AddDisaster failed: %v", err)
	}
	if err := db.SaveAssessment(ctx, &models.ImpactAssessment{ID: "a1", DisasterID: "eq1", AssessedAt: now}); err != nil {
		t.Fatalf("SaveAssessment failed: %v", err)
	}

	if err := db.DeleteDisaster(ctx, "eq1"); err != nil {
		t.Fatalf("DeleteDisaster failed: %v", err)
	}

	got, err := db.ListAssessments(ctx, "eq1", 0)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected assessments deleted with their disaster, got %d", len(got))
	}

	if err := db.DeleteDisaster(ctx, "eq1"); !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestSQLiteDB_CensusBlocks(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	blocks := []models.CensusBlock{
		{ID: "b2020", Year: 2020, Population: 1240, Households: 400, Elderly: 100, Geometry: square(-118.3, 34.0, 0.01)},
		{ID: "b2010", Year: 2010, Population: 900, Geometry: square(-118.3, 34.0, 0.01)},
	}

	n, err := db.AddCensusBlocks(ctx, blocks)
	if err != nil {
		t.Fatalf("AddCensusBlocks failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 blocks stored, got %d", n)
	}

	got, err := db.ListCensusBlocks(ctx, 2020)
	if err != nil {
		t.Fatalf("ListCensusBlocks failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b2020" {
		t.Fatalf("expected only the 2020 block, got %d", len(got))
	}
	if got[0].Density <= 0 {
		t.Errorf("expected density recomputed on read, got %v", got[0].Density)
	}

	all, err := db.LoadCensusBlocks(ctx)
	if err != nil {
		t.Fatalf("LoadCensusBlocks failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(all))
	}
}

func TestSQLiteDB_CensusBlocksAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	blocks := []models.CensusBlock{
		{ID: "ok", Population: 10, Geometry: square(0, 0, 0.01)},
		{ID: "bad", Population: 10, Elderly: 11, Geometry: square(1, 1, 0.01)},
	}
	if _, err := db.AddCensusBlocks(ctx, blocks); err == nil {
		t.Fatal("expected validation error, got nil")
	}

	got, err := db.ListCensusBlocks(ctx, 0)
	if err != nil {
		t.Fatalf("ListCensusBlocks failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no blocks after failed import, got %d", len(got))
	}
}

func TestSQLiteDB_Sites(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	beds := 350
	hospital := &models.InfrastructureSite{
		ID:          "h1",
		Name:        "County General",
		Category:    models.SiteHospital,
		Location:    orb.Point{-118.21, 34.06},
		Capacity:    &beds,
		Operational: true,
		Contact:     models.Contact{Phone: "555-0100"},
	}
	shelter := &models.InfrastructureSite{ID: "s1", Name: "Rec Center", Category: models.SiteShelter, Location: orb.Point{-118.3, 34.1}}

	for _, s := range []*models.InfrastructureSite{hospital, shelter} {
		if err := db.UpsertSite(ctx, s); err != nil {
			t.Fatalf("UpsertSite %s failed: %v", s.ID, err)
		}
	}

	hospital.Name = "County General Hospital"
	if err := db.UpsertSite(ctx, hospital); err != nil {
		t.Fatalf("UpsertSite update failed: %v", err)
	}

	cat := models.SiteHospital
	got, err := db.ListSites(ctx, &cat)
	if err != nil {
		t.Fatalf("ListSites failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hospital, got %d", len(got))
	}
	if got[0].Name != "County General Hospital" || got[0].Capacity == nil || *got[0].Capacity != 350 {
		t.Errorf("unexpected hospital %#v", got[0])
	}
	if got[0].Contact.Phone != "555-0100" {
		t.Errorf("expected phone to round trip, got %q", got[0].Contact.Phone)
	}

	if err := db.SetOperational(ctx, "h1", false); err != nil {
		t.Fatalf("SetOperational failed: %v", err)
	}
	all, err := db.LoadSites(ctx)
	if err != nil {
		t.Fatalf("LoadSites failed: %v", err)
	}
	if len(all) != 2 || all[0].Operational {
		t.Errorf("expected h1 out of service, got %#v", all)
	}

	if err := db.SetOperational(ctx, "missing", true); !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
