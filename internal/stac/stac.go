// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stac queries a SpatioTemporal Asset Catalog API for satellite
// products. See docs/ARCHITECTURE § Catalog Search.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pdiddy/eo-engine/internal/httputil"
	"github.com/pdiddy/eo-engine/pkg/types"
)

// productAssetKey is the asset name catalogs commonly use for the archive itself.
const productAssetKey = "PRODUCT"

// Query holds the search parameters. Exactly one of Bound and Point may be
// set; both nil means no spatial filter.
type Query struct {
	Collections []string
	Bound       *orb.Bound
	Point       *orb.Point
	DateFrom    time.Time
	DateTo      time.Time

	// MaxCloudCover filters on eo:cloud_cover (percent). Negative disables
	// the filter.
	MaxCloudCover float64
}

// Client searches a STAC API.
type Client struct {
	httpClient *http.Client
	cfg        types.CatalogConfig
}

// NewClient returns a Client for the API root in cfg.
func NewClient(httpClient *http.Client, cfg types.CatalogConfig) (*Client, error) {
	if cfg.APIRoot == "" {
		return nil, fmt.Errorf("catalog API root is required")
	}
	return &Client{httpClient: httpClient, cfg: cfg}, nil
}

// searchRequest is the STAC item-search POST body.
type searchRequest struct {
	Collections []string                      `json:"collections,omitempty"`
	BBox        []float64                     `json:"bbox,omitempty"`
	Intersects  *geojson.Geometry             `json:"intersects,omitempty"`
	Datetime    string                        `json:"datetime,omitempty"`
	Limit       int                           `json:"limit,omitempty"`
	Query       map[string]map[string]float64 `json:"query,omitempty"`
}

// STAC item-search response structures.
type featureCollection struct {
	Features []feature `json:"features"`
	Links    []link    `json:"links"`
}

type feature struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	BBox       []float64         `json:"bbox"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties featureProperties `json:"properties"`
	Assets     map[string]asset  `json:"assets"`
}

type featureProperties struct {
	Datetime   string   `json:"datetime"`
	CloudCover *float64 `json:"eo:cloud_cover"`
}

type asset struct {
	Href string `json:"href"`
}

type link struct {
	Rel    string          `json:"rel"`
	Href   string          `json:"href"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Search posts the query to {root}/search and follows rel=next links until
// the result limit is reached or the catalog runs out of pages.
func (c *Client) Search(ctx context.Context, q Query) ([]types.Product, error) {
	if q.Bound != nil && q.Point != nil {
		return nil, fmt.Errorf("provide a bounding box or a point, not both")
	}

	maxResults := c.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	req, err := c.buildRequest(q, maxResults)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	searchURL := strings.TrimSuffix(c.cfg.APIRoot, "/") + "/search"
	var products []types.Product

	method, url, payload := http.MethodPost, searchURL, body
	for {
		fc, err := c.fetchPage(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}

		for _, f := range fc.Features {
			products = append(products, toProduct(f))
			if len(products) >= maxResults {
				return products, nil
			}
		}

		next := findLink(fc.Links, "next")
		if next == nil {
			return products, nil
		}
		url = next.Href
		if next.Body != nil {
			method, payload = http.MethodPost, next.Body
		} else {
			method, payload = http.MethodGet, nil
		}
		if next.Method != "" {
			method = next.Method
		}
	}
}

// buildRequest translates the query into a STAC item-search body.
func (c *Client) buildRequest(q Query, limit int) (searchRequest, error) {
	req := searchRequest{
		Collections: q.Collections,
		Limit:       limit,
	}

	if q.Bound != nil {
		b := *q.Bound
		req.BBox = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	if q.Point != nil {
		req.Intersects = geojson.NewGeometry(*q.Point)
	}

	if !q.DateFrom.IsZero() || !q.DateTo.IsZero() {
		from, to := "..", ".."
		if !q.DateFrom.IsZero() {
			from = q.DateFrom.UTC().Format(time.RFC3339)
		}
		if !q.DateTo.IsZero() {
			to = q.DateTo.UTC().Format(time.RFC3339)
		}
		req.Datetime = from + "/" + to
	}

	if q.MaxCloudCover >= 0 {
		req.Query = map[string]map[string]float64{
			"eo:cloud_cover": {"lt": q.MaxCloudCover},
		}
	}
	return req, nil
}

// fetchPage performs one item-search request with 429 retry.
func (c *Client) fetchPage(ctx context.Context, method, url string, body []byte) (*featureCollection, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned HTTP %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("parsing catalog response: %w", err)
	}
	return &fc, nil
}

func findLink(links []link, rel string) *link {
	for i := range links {
		if links[i].Rel == rel {
			return &links[i]
		}
	}
	return nil
}

// toProduct distills a STAC feature into a Product record.
func toProduct(f feature) types.Product {
	p := types.Product{
		ID:               strings.TrimSuffix(f.ID, ".SAFE"),
		Collection:       f.Collection,
		CloudCover:       -1,
		ConversionStatus: types.ConversionNone,
	}

	if f.Properties.CloudCover != nil {
		p.CloudCover = *f.Properties.CloudCover
	}
	if t, err := time.Parse(time.RFC3339, f.Properties.Datetime); err == nil {
		p.Datetime = t
	}

	if len(f.BBox) == 4 {
		p.BBox = f.BBox
	} else if f.Geometry != nil {
		b := f.Geometry.Geometry().Bound()
		p.BBox = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}

	p.SourceURI = productURI(f.Assets)
	return p
}

// productURI picks the storage URI of the archive from the item assets: the
// PRODUCT asset when present, otherwise the first s3 href in name order.
func productURI(assets map[string]asset) string {
	if a, ok := assets[productAssetKey]; ok && strings.HasPrefix(a.Href, "s3://") {
		return a.Href
	}

	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if href := assets[name].Href; strings.HasPrefix(href, "s3://") {
			return href
		}
	}
	return ""
}
