// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/pdiddy/eo-engine/pkg/types"
)

func testConfig(root string) types.CatalogConfig {
	return types.CatalogConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "eo-engine/test"},
		APIRoot:    root,
		MaxResults: 20,
	}
}

const sampleFeature = `{
  "id": "S2B_MSIL2A_20230810T095549_N0509_R122_T33TUM_20230810T124513.SAFE",
  "collection": "sentinel-2-l2a",
  "bbox": [11.2, 47.8, 12.6, 48.9],
  "geometry": {"type": "Point", "coordinates": [11.9, 48.3]},
  "properties": {
    "datetime": "2023-08-10T09:55:49Z",
    "eo:cloud_cover": 3.2
  },
  "assets": {
    "thumbnail": {"href": "https://example.com/thumb.png"},
    "PRODUCT": {"href": "s3://eodata/Sentinel-2/MSI/L2A/2023/08/10/S2B_MSIL2A_20230810T095549_N0509_R122_T33TUM_20230810T124513.SAFE"}
  }
}`

func TestSearch_BuildsRequest(t *testing.T) {
	var got searchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		fmt.Fprint(w, `{"features": [], "links": []}`)
	}))
	defer ts.Close()

	client, err := NewClient(ts.Client(), testConfig(ts.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	bound := orb.Bound{Min: orb.Point{11.0, 47.0}, Max: orb.Point{13.0, 49.0}}
	q := Query{
		Collections:   []string{"sentinel-2-l2a"},
		Bound:         &bound,
		DateFrom:      time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
		DateTo:        time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 10,
	}
	if _, err := client.Search(context.Background(), q); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(got.Collections) != 1 || got.Collections[0] != "sentinel-2-l2a" {
		t.Errorf("collections = %v", got.Collections)
	}
	wantBBox := []float64{11.0, 47.0, 13.0, 49.0}
	for i, v := range wantBBox {
		if got.BBox[i] != v {
			t.Errorf("bbox = %v, want %v", got.BBox, wantBBox)
			break
		}
	}
	if got.Datetime != "2023-08-01T00:00:00Z/2023-08-31T00:00:00Z" {
		t.Errorf("datetime = %q", got.Datetime)
	}
	if got.Query["eo:cloud_cover"]["lt"] != 10 {
		t.Errorf("cloud cover query = %v", got.Query)
	}
	if got.Limit != 20 {
		t.Errorf("limit = %d, want 20", got.Limit)
	}
}

func TestSearch_PointIntersects(t *testing.T) {
	var got searchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"features": [], "links": []}`)
	}))
	defer ts.Close()

	client, _ := NewClient(ts.Client(), testConfig(ts.URL))
	point := orb.Point{11.9, 48.3}
	if _, err := client.Search(context.Background(), Query{Point: &point, MaxCloudCover: -1}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got.Intersects == nil {
		t.Fatal("intersects geometry missing from request")
	}
	p, ok := got.Intersects.Geometry().(orb.Point)
	if !ok {
		t.Fatalf("intersects geometry is %T, want orb.Point", got.Intersects.Geometry())
	}
	if p[0] != 11.9 || p[1] != 48.3 {
		t.Errorf("intersects point = %v", p)
	}
	if got.Query != nil {
		t.Errorf("cloud cover filter should be absent, got %v", got.Query)
	}
}

func TestSearch_ParsesProducts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"features": [%s], "links": []}`, sampleFeature)
	}))
	defer ts.Close()

	client, _ := NewClient(ts.Client(), testConfig(ts.URL))
	products, err := client.Search(context.Background(), Query{MaxCloudCover: -1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	p := products[0]
	if p.ID != "S2B_MSIL2A_20230810T095549_N0509_R122_T33TUM_20230810T124513" {
		t.Errorf("ID = %q (should drop .SAFE suffix)", p.ID)
	}
	if p.Collection != "sentinel-2-l2a" {
		t.Errorf("collection = %q", p.Collection)
	}
	if p.CloudCover != 3.2 {
		t.Errorf("cloud cover = %v, want 3.2", p.CloudCover)
	}
	if p.Datetime.IsZero() || p.Datetime.Hour() != 9 {
		t.Errorf("datetime = %v", p.Datetime)
	}
	if p.SourceURI == "" || p.SourceURI[:10] != "s3://eodat" {
		t.Errorf("source URI = %q", p.SourceURI)
	}
	if len(p.BBox) != 4 || p.BBox[0] != 11.2 {
		t.Errorf("bbox = %v", p.BBox)
	}
}

func TestSearch_FollowsNextLinks(t *testing.T) {
	var calls int
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			fmt.Fprintf(w, `{"features": [%s], "links": [
				{"rel": "next", "href": %q, "method": "POST", "body": {"token": "page2"}}
			]}`, sampleFeature, ts.URL+"/search")
		default:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["token"] != "page2" {
				t.Errorf("next-page body = %v", body)
			}
			fmt.Fprintf(w, `{"features": [%s], "links": []}`, sampleFeature)
		}
	}))
	defer ts.Close()

	client, _ := NewClient(ts.Client(), testConfig(ts.URL))
	products, err := client.Search(context.Background(), Query{MaxCloudCover: -1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
	if len(products) != 2 {
		t.Errorf("got %d products, want 2", len(products))
	}
}

func TestSearch_StopsAtMaxResults(t *testing.T) {
	var calls int
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		// Every page advertises another; the client must stop on its own.
		fmt.Fprintf(w, `{"features": [%s, %s], "links": [
			{"rel": "next", "href": %q}
		]}`, sampleFeature, sampleFeature, ts.URL+"/search")
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.MaxResults = 3
	client, _ := NewClient(ts.Client(), cfg)
	products, err := client.Search(context.Background(), Query{MaxCloudCover: -1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(products) != 3 {
		t.Errorf("got %d products, want 3", len(products))
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
}

func TestSearch_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client, _ := NewClient(ts.Client(), testConfig(ts.URL))
	if _, err := client.Search(context.Background(), Query{MaxCloudCover: -1}); err == nil {
		t.Fatal("expected error on HTTP 400, got nil")
	}
}

func TestSearch_RejectsBoundAndPoint(t *testing.T) {
	client, _ := NewClient(http.DefaultClient, testConfig("https://example.com"))
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	point := orb.Point{0.5, 0.5}
	_, err := client.Search(context.Background(), Query{Bound: &bound, Point: &point})
	if err == nil {
		t.Fatal("expected error when both spatial filters set")
	}
}

func TestProductURI(t *testing.T) {
	tests := []struct {
		name   string
		assets map[string]asset
		want   string
	}{
		{
			"product asset preferred",
			map[string]asset{
				"a":             {Href: "s3://eodata/other"},
				productAssetKey: {Href: "s3://eodata/the-product.SAFE"},
			},
			"s3://eodata/the-product.SAFE",
		},
		{
			"first s3 href in name order",
			map[string]asset{
				"b-data":    {Href: "s3://eodata/b"},
				"a-data":    {Href: "s3://eodata/a"},
				"thumbnail": {Href: "https://example.com/t.png"},
			},
			"s3://eodata/a",
		},
		{"no storage assets", map[string]asset{"thumbnail": {Href: "https://x/t.png"}}, ""},
		{"empty", map[string]asset{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := productURI(tt.assets); got != tt.want {
				t.Errorf("productURI = %q, want %q", got, tt.want)
			}
		})
	}
}
