// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stac

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/eo-engine/pkg/types"
)

// FormatTable writes products as a human-readable table to w.
func FormatTable(products []types.Product, w io.Writer) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-44s  %-16s  %-6s  %s\n",
		"Rank", "Product", "Sensed", "Cloud", "Storage URI")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range products {
		id := p.ID
		if len(id) > 44 {
			id = id[:41] + "..."
		}
		sensed := ""
		if !p.Datetime.IsZero() {
			sensed = p.Datetime.Format("2006-01-02 15:04")
		}
		cloud := "-"
		if p.CloudCover >= 0 {
			cloud = fmt.Sprintf("%.1f%%", p.CloudCover)
		}
		fmt.Fprintf(w, "%-4d  %-44s  %-16s  %-6s  %s\n", i+1, id, sensed, cloud, p.SourceURI)
	}

	fmt.Fprintf(w, "\n%d products\n", len(products))
}

// FormatJSON writes products as indented JSON to w.
func FormatJSON(products []types.Product, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}
