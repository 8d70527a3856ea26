package main

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/region"
	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List selectable regions",
	Long:  `List the regions in the boundary dataset with their codes and bounds.`,
	RunE:  runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}

func runRegions(cmd *cobra.Command, args []string) error {
	regions, err := region.Load(cfg.BoundariesPath)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "%-4s %-4s %-32s %-16s %s\n", "", "CODE", "NAME", "CENTER", "BOUNDS (S,W,N,E)")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	for _, r := range regions.All() {
		if r.Code == "" {
			continue
		}
		b := r.Bounds
		lat, lon := b.Center()
		center := fmt.Sprintf("%.2f,%.2f", lat, lon)
		fmt.Fprintf(out, "%-4s %-4s %-32s %-16s %.2f,%.2f,%.2f,%.2f\n",
			domain.FlagEmoji(r.Code), r.Code, r.Name, center, b.South, b.West, b.North, b.East)
	}
	fmt.Fprintf(out, "\n%d selectable regions\n", len(regions.Codes()))
	return nil
}
