package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/seed"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printImportSummary(s seed.Summary) {
	fmt.Printf("Imported %d disasters, %d census blocks, %d infrastructure sites\n",
		s.Disasters, s.CensusBlocks, s.Sites)
	if s.Skipped > 0 {
		fmt.Printf("Skipped %d disasters already in the database\n", s.Skipped)
	}
}

func printAssessment(a *models.ImpactAssessment) {
	fmt.Printf("Assessment %s for %s (%s", a.ID, a.DisasterID, a.Category)
	if a.Severity != "" {
		fmt.Printf(", %s", a.Severity)
	}
	fmt.Printf(") at %s\n\n", a.AssessedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("  Affected population:  %d in %d blocks (%d households)\n",
		a.AffectedPopulation, a.BlockCount, a.AffectedHouseholds)
	fmt.Printf("  Elderly / children:   %d / %d\n", a.Elderly, a.Children)
	fmt.Printf("  Disabled / low income: %d / %d\n", a.Disabled, a.LowIncome)
	fmt.Printf("  Affected area:        %.2f km²\n", a.AffectedAreaSqKm)
	fmt.Printf("  Estimated loss:       $%d\n", a.EstimatedLoss)
	fmt.Printf("  Vulnerability score:  %.1f / 100\n", a.VulnerabilityScore)

	if len(a.Zones) > 0 {
		fmt.Println("\nEvacuation zones:")
		for _, z := range a.Zones {
			fmt.Printf("  %6.0f m  %10.2f km²\n", z.RadiusMeters, z.AreaSqKm)
		}
	}

	if len(a.InfrastructureCounts) > 0 {
		fmt.Println("\nInfrastructure nearby:")
		cats := make([]string, 0, len(a.InfrastructureCounts))
		for c := range a.InfrastructureCounts {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Printf("  %-16s %d\n", c, a.InfrastructureCounts[models.SiteCategory(c)])
		}
		fmt.Println()
		printSites(a.NearbySites)
	}
}

func printSites(sites []models.SiteDistance) {
	if len(sites) == 0 {
		fmt.Println("No sites found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tDISTANCE\tOPERATIONAL")
	for _, s := range sites {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f m\t%t\n", s.SiteID, s.Name, s.Category, s.DistanceMeters, s.Operational)
	}
	w.Flush()
}

func printClusters(category string, clusters []models.ClusterResult) {
	if len(clusters) == 0 {
		fmt.Printf("No recent %s disasters\n", category)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAT\tLNG\tCOUNT")
	for _, c := range clusters {
		fmt.Fprintf(w, "%.4f\t%.4f\t%d\n", c.Center.Lat(), c.Center.Lon(), c.Count)
	}
	w.Flush()
}

func printFires(fires []models.Disaster) {
	if len(fires) == 0 {
		fmt.Println("No fires")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tDETECTIONS\tLAT\tLNG\tSTART")
	for _, f := range fires {
		n := 1
		if mp, ok := f.Geometry.(orb.MultiPoint); ok {
			n = len(mp)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%s\n",
			f.ID, f.Severity, n, f.Centroid.Lat(), f.Centroid.Lon(), f.StartTime.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
