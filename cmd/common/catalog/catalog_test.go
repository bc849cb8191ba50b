package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if len(c.Bases()) == 0 || len(c.Overlays()) == 0 {
		t.Fatalf("default catalog should have bases and overlays, got %d/%d", len(c.Bases()), len(c.Overlays()))
	}

	thunder, err := c.Overlay("thunder_1")
	if err != nil {
		t.Fatalf("Overlay(thunder_1) error: %v", err)
	}
	if thunder.MinIntervalMs != 1000 || thunder.MaxIntervalMs != 2000 {
		t.Errorf("thunder_1 interval = [%d,%d], want [1000,2000]", thunder.MinIntervalMs, thunder.MaxIntervalMs)
	}

	for _, id := range []string{"rain", "forest", "ocean", "wind", "campfire"} {
		if !c.IsBase(id) {
			t.Errorf("expected base %q in default catalog", id)
		}
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"valid", `{"bases":[{"id":"rain","title":"Rain","resourceRef":"rain.mp3"}],"overlays":[{"id":"birds","title":"Birds","resourceRef":"b.mp3","minIntervalMs":5000,"maxIntervalMs":15000}]}`, false},
		{"equal bounds", `{"overlays":[{"id":"o","title":"O","resourceRef":"o.mp3","minIntervalMs":10,"maxIntervalMs":10}]}`, false},
		{"empty document", `{}`, false},
		{"not json", `{`, true},
		{"empty id", `{"bases":[{"id":"","title":"x","resourceRef":"x.mp3"}]}`, true},
		{"missing resource", `{"bases":[{"id":"rain","title":"Rain"}]}`, true},
		{"duplicate across kinds", `{"bases":[{"id":"x","resourceRef":"a"}],"overlays":[{"id":"x","resourceRef":"b","minIntervalMs":1,"maxIntervalMs":2}]}`, true},
		{"zero min", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":0,"maxIntervalMs":10}]}`, true},
		{"max below min", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":20,"maxIntervalMs":10}]}`, true},
		{"max of one day", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":1000,"maxIntervalMs":86400000}]}`, false},
		{"max above one day", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":1000,"maxIntervalMs":86400001}]}`, true},
		{"max overflowing duration", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":1000,"maxIntervalMs":10000000000000000}]}`, true},
		{"both bounds huge", `{"overlays":[{"id":"o","resourceRef":"o","minIntervalMs":9000000000000000000,"maxIntervalMs":9000000000000000000}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("error should wrap ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestParseReportsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`{"overlays":[
		{"id":"a","resourceRef":"a","minIntervalMs":0,"maxIntervalMs":10},
		{"id":"b","resourceRef":"b","minIntervalMs":20,"maxIntervalMs":10}
	]}`))
	if err == nil {
		t.Fatal("expected error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	if n := len(joined.Unwrap()); n != 2 {
		t.Errorf("expected 2 problems, got %d: %v", n, err)
	}
}

func TestLookups(t *testing.T) {
	c, err := New(
		[]BaseTrack{{ID: "rain", Title: "Rain", Resource: "rain.mp3"}},
		[]OverlaySound{
			{ID: "a", Title: "A", Resource: "a.mp3", MinIntervalMs: 1, MaxIntervalMs: 2},
			{ID: "b", Title: "B", Resource: "b.mp3", MinIntervalMs: 1, MaxIntervalMs: 2},
		},
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := c.Base("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Base(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := c.Overlay("rain"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Overlay(rain) error = %v, want ErrNotFound", err)
	}
	if !c.Has("rain") || !c.Has("b") || c.Has("c") {
		t.Error("Has() returned wrong membership")
	}
	if got, want := c.IDs(), []string{"rain", "a", "b"}; !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if got := c.Title("a"); got != "A" {
		t.Errorf("Title(a) = %q", got)
	}
	if got, want := c.SortOverlayIDs([]string{"b", "zzz", "a"}), []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("SortOverlayIDs() = %v, want %v", got, want)
	}

	// Accessors must not leak internal slices.
	bases := c.Bases()
	bases[0].ID = "mutated"
	if !c.IsBase("rain") || c.Bases()[0].ID != "rain" {
		t.Error("mutating Bases() result changed the catalog")
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if !slices.Equal(c.IDs(), Default().IDs()) {
		t.Errorf("round trip changed ids: %v", c.IDs())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile on missing file should fail")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("expected no-cache header, got %q", r.Header.Get("Cache-Control"))
		}
		switch r.URL.Path {
		case "/catalog.json":
			w.Write([]byte(`{"bases":[{"id":"remote","title":"Remote","resourceRef":"r.mp3"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := Resolve(context.Background(), srv.URL+"/catalog.json")
	if err != nil {
		t.Fatalf("Resolve(url) error: %v", err)
	}
	if !c.IsBase("remote") {
		t.Errorf("expected remote base, got %v", c.IDs())
	}

	if _, err := Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Fetch of 404 should fail")
	}
}

func TestResolveDefault(t *testing.T) {
	c, err := Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve(\"\") error: %v", err)
	}
	if !slices.Equal(c.IDs(), Default().IDs()) {
		t.Error("empty source should resolve to the bundled catalog")
	}
}
