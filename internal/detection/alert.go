package detection

import (
	"strings"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

type alertRule struct {
	category models.Category
	keywords []string
}

// Checked in order; the first rule with a keyword in the title wins.
var alertRules = []alertRule{
	{models.CategoryTornado, []string{"tornado", "funnel cloud"}},
	{models.CategoryFlood, []string{"flood", "high water"}},
	{models.CategoryWinterStorm, []string{"winter storm", "blizzard", "snow", "ice storm"}},
	{models.CategoryHurricane, []string{"hurricane", "tropical storm"}},
}

// ClassifyAlert maps a weather alert title such as "Tornado warning in
// effect" to a disaster category and severity. Titles that match no hazard
// keyword are severe weather; titles that name no alert level are moderate.
func ClassifyAlert(title string) (models.Category, models.Severity) {
	t := strings.ToLower(title)

	category := models.CategorySevereWeather
rules:
	for _, r := range alertRules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				category = r.category
				break rules
			}
		}
	}

	switch {
	case strings.Contains(t, "warning"):
		return category, models.SeveritySevere
	case strings.Contains(t, "watch"):
		return category, models.SeverityModerate
	case strings.Contains(t, "statement"), strings.Contains(t, "advisory"):
		return category, models.SeverityMinor
	default:
		return category, models.SeverityModerate
	}
}
