package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:          "impactctl",
		Short:        "Operator tool for the disaster impact engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path (default from DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	rootCmd.AddCommand(importCmd(&opts))
	rootCmd.AddCommand(assessCmd(&opts))
	rootCmd.AddCommand(hotspotsCmd(&opts))
	rootCmd.AddCommand(nearestCmd(&opts))
	rootCmd.AddCommand(detectionsCmd(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func importCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [geojson-file]",
		Short: "Import disasters, census blocks and infrastructure from a GeoJSON FeatureCollection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args[0])
		},
	}
}

func assessCmd(opts *globalOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "assess [disaster-id]",
		Short: "Run a full impact assessment for one disaster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd.Context(), opts, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", true, "record the assessment in the database")
	return cmd
}

func hotspotsCmd(opts *globalOptions) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "hotspots [category]",
		Short: "Cluster recent disasters of a category into hotspots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHotspots(cmd.Context(), opts, args[0], k)
		},
	}

	cmd.Flags().IntVarP(&k, "clusters", "k", 5, "number of clusters")
	return cmd
}

func nearestCmd(opts *globalOptions) *cobra.Command {
	var (
		lat, lng float64
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find the nearest operational infrastructure of a type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNearest(cmd.Context(), opts, lat, lng, category, limit)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().StringVarP(&category, "type", "t", "", "infrastructure type, e.g. hospital")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum sites to return")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func detectionsCmd(opts *globalOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "detections [json-file]",
		Short: "Cluster satellite fire detections into wildfire disasters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetections(cmd.Context(), opts, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store new wildfires in the database")
	return cmd
}
