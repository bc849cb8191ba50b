package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

//go:embed default.json
var defaultJSON []byte

const fetchTimeout = 10 * time.Second

// maxCatalogBytes bounds remote catalog documents.
const maxCatalogBytes = 4 << 20

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	c, err := Parse(defaultJSON)
	if err != nil {
		panic(fmt.Sprintf("bundled catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Fetch downloads a catalog document, bypassing any HTTP caches so edits show up immediately.
func Fetch(ctx context.Context, url string) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog body: %w", err)
	}
	return Parse(data)
}

// Resolve loads a catalog from src: an http(s) URL, a file path, or the bundled
// catalog when src is empty.
func Resolve(ctx context.Context, src string) (*Catalog, error) {
	switch {
	case src == "":
		return Default(), nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return Fetch(ctx, src)
	default:
		return LoadFile(src)
	}
}
