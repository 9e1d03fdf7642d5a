// Package scoring turns affected population and area into a dollar loss
// estimate and a 0-100 social vulnerability score.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// Tables holds the calibration constants. The zero value is not useful; start
// from DefaultTables.
type Tables struct {
	BasePerCapita      map[models.Severity]float64 `yaml:"base_per_capita"`
	CategoryMultiplier map[models.Category]float64 `yaml:"category_multiplier"`
	// Used when a severity or category has no table entry.
	DefaultPerCapita  float64 `yaml:"default_per_capita"`
	DefaultMultiplier float64 `yaml:"default_multiplier"`
	// Dollars per square kilometre of affected area.
	AreaRate float64 `yaml:"area_rate"`

	Weights VulnerabilityWeights `yaml:"vulnerability_weights"`
}

type VulnerabilityWeights struct {
	Elderly   float64 `yaml:"elderly"`
	Children  float64 `yaml:"children"`
	Disabled  float64 `yaml:"disabled"`
	LowIncome float64 `yaml:"low_income"`
}

func DefaultTables() *Tables {
	return &Tables{
		BasePerCapita: map[models.Severity]float64{
			models.SeverityMinor:    5000,
			models.SeverityModerate: 15000,
			models.SeveritySevere:   40000,
			models.SeverityExtreme:  100000,
		},
		CategoryMultiplier: map[models.Category]float64{
			models.CategoryEarthquake:    2.0,
			models.CategoryHurricane:     1.8,
			models.CategoryFlood:         1.5,
			models.CategoryTornado:       1.4,
			models.CategoryWildfire:      1.3,
			models.CategorySevereWeather: 1.0,
			models.CategoryWinterStorm:   0.8,
			models.CategoryDrought:       0.6,
		},
		DefaultPerCapita:  15000,
		DefaultMultiplier: 1.0,
		AreaRate:          250000,
		Weights:           VulnerabilityWeights{Elderly: 0.3, Children: 0.2, Disabled: 0.3, LowIncome: 0.2},
	}
}

// LoadTables reads a YAML override file. Keys missing from the file keep
// their default values; map entries are merged over the defaults.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scoring tables: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing scoring tables %s: %w", path, err)
	}

	t := DefaultTables()
	for sev, v := range override.BasePerCapita {
		if _, ok := models.ParseSeverity(string(sev)); !ok || sev == models.SeverityNone {
			return nil, fmt.Errorf("scoring tables %s: unknown severity %q", path, sev)
		}
		t.BasePerCapita[sev] = v
	}
	for cat, v := range override.CategoryMultiplier {
		if _, ok := models.ParseCategory(string(cat)); !ok {
			return nil, fmt.Errorf("scoring tables %s: unknown category %q", path, cat)
		}
		t.CategoryMultiplier[cat] = v
	}
	if override.DefaultPerCapita != 0 {
		t.DefaultPerCapita = override.DefaultPerCapita
	}
	if override.DefaultMultiplier != 0 {
		t.DefaultMultiplier = override.DefaultMultiplier
	}
	if override.AreaRate != 0 {
		t.AreaRate = override.AreaRate
	}
	// Weights replace the defaults as a block.
	if override.Weights != (VulnerabilityWeights{}) {
		t.Weights = override.Weights
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("scoring tables %s: %w", path, err)
	}
	return t, nil
}

func (t *Tables) validate() error {
	for sev, v := range t.BasePerCapita {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative base per capita for %s", sev)
		}
	}
	for cat, v := range t.CategoryMultiplier {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative multiplier for %s", cat)
		}
	}
	w := t.Weights
	for _, v := range []float64{w.Elderly, w.Children, w.Disabled, w.LowIncome} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative vulnerability weight")
		}
	}
	if t.AreaRate < 0 || t.DefaultPerCapita < 0 || t.DefaultMultiplier < 0 {
		return fmt.Errorf("negative rate")
	}
	return nil
}

var defaults = DefaultTables()

// EstimateLoss uses DefaultTables.
func EstimateLoss(category models.Category, severity models.Severity, population int, areaSqKm float64) (int64, error) {
	return defaults.EstimateLoss(category, severity, population, areaSqKm)
}

// EstimateLoss is population × per-capita loss for the severity × the
// category multiplier, plus affected area × AreaRate, rounded to whole dollars.
func (t *Tables) EstimateLoss(category models.Category, severity models.Severity, population int, areaSqKm float64) (int64, error) {
	if population < 0 {
		return 0, engineerr.InvalidArgument("estimate loss", "negative population %d", population)
	}
	if areaSqKm < 0 || math.IsNaN(areaSqKm) || math.IsInf(areaSqKm, 0) {
		return 0, engineerr.InvalidArgument("estimate loss", "invalid area %v", areaSqKm)
	}

	base, ok := t.BasePerCapita[severity]
	if !ok {
		base = t.DefaultPerCapita
	}
	mult, ok := t.CategoryMultiplier[category]
	if !ok {
		mult = t.DefaultMultiplier
	}

	loss := math.Round(float64(population)*base*mult + areaSqKm*t.AreaRate)
	if loss >= math.MaxInt64 {
		return 0, engineerr.ComputationFailure("estimate loss", "loss overflows: %g", loss)
	}
	return int64(loss), nil
}

// Demographics are the counts a vulnerability score is computed from.
type Demographics struct {
	Population int
	Elderly    int
	Children   int
	Disabled   int
	LowIncome  int
}

// VulnerabilityScore uses DefaultTables.
func VulnerabilityScore(d Demographics) float64 {
	return defaults.VulnerabilityScore(d)
}

// VulnerabilityScore weights the share of each vulnerable group in the
// population. An empty population scores 0; the result is clamped to [0,100].
func (t *Tables) VulnerabilityScore(d Demographics) float64 {
	if d.Population <= 0 {
		return 0
	}
	pct := func(n int) float64 {
		return 100 * float64(n) / float64(d.Population)
	}
	w := t.Weights
	score := w.Elderly*pct(d.Elderly) +
		w.Children*pct(d.Children) +
		w.Disabled*pct(d.Disabled) +
		w.LowIncome*pct(d.LowIncome)
	return math.Max(0, math.Min(100, score))
}
