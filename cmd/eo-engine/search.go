package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/pdiddy/eo-engine/internal/stac"
	"github.com/pdiddy/eo-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "eo-engine/0.1"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the STAC catalog for satellite products",
	Long: `Search queries the configured STAC API for products matching a collection,
a spatial filter (bounding box or point), a sensing-time range, and a cloud
cover ceiling. Results list the product identifier and its storage URI, which
the fetch command accepts directly.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("collection", "", "STAC collection to search (e.g. sentinel-2-l2a)")
	searchCmd.Flags().String("bbox", "", "bounding box filter as west,south,east,north")
	searchCmd.Flags().String("point", "", "point intersection filter as lon,lat")
	searchCmd.Flags().String("from", "", "sensing date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "sensing date range end (YYYY-MM-DD)")
	searchCmd.Flags().Float64("max-cloud-cover", -1, "maximum eo:cloud_cover percentage (negative disables)")
	searchCmd.Flags().Int("max-results", 20, "maximum number of results to return")
	searchCmd.Flags().String("api-root", "", "STAC API root URL (overrides config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	cfg := types.CatalogConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   defaultTimeout,
			UserAgent: defaultUserAgent,
		},
		APIRoot:    stringSetting(cmd, "api-root", "catalog.api_root"),
		Token:      secretDefault("stac-api-token", ""),
		MaxResults: maxResults,
	}

	client, err := stac.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg)
	if err != nil {
		return err
	}

	query, err := buildQuery(cmd)
	if err != nil {
		return err
	}

	products, err := client.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return stac.FormatJSON(products, os.Stdout)
	}
	stac.FormatTable(products, os.Stdout)
	return nil
}

func buildQuery(cmd *cobra.Command) (stac.Query, error) {
	var q stac.Query

	if collection, _ := cmd.Flags().GetString("collection"); collection != "" {
		q.Collections = []string{collection}
	}
	q.MaxCloudCover, _ = cmd.Flags().GetFloat64("max-cloud-cover")

	if bbox, _ := cmd.Flags().GetString("bbox"); bbox != "" {
		vals, err := parseFloats(bbox, 4)
		if err != nil {
			return q, fmt.Errorf("invalid --bbox (want west,south,east,north): %w", err)
		}
		q.Bound = &orb.Bound{
			Min: orb.Point{vals[0], vals[1]},
			Max: orb.Point{vals[2], vals[3]},
		}
	}
	if point, _ := cmd.Flags().GetString("point"); point != "" {
		vals, err := parseFloats(point, 2)
		if err != nil {
			return q, fmt.Errorf("invalid --point (want lon,lat): %w", err)
		}
		p := orb.Point{vals[0], vals[1]}
		q.Point = &p
	}

	var err error
	if q.DateFrom, err = parseDate(cmd, "from"); err != nil {
		return q, err
	}
	if q.DateTo, err = parseDate(cmd, "to"); err != nil {
		return q, err
	}
	return q, nil
}

func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("got %d values, want %d", len(parts), want)
	}
	vals := make([]float64, want)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseDate(cmd *cobra.Command, flag string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(flag)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q (want YYYY-MM-DD)", flag, s)
}
