// Package catalog holds the read-only registry of base tracks and overlay sounds.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// IntervalCapMs caps overlay replay bounds at one day.
const IntervalCapMs = int64(24 * time.Hour / time.Millisecond)

var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrNotFound       = errors.New("sound not found")
)

// BaseTrack is a looping ambient sound that forms the bed of a soundscape.
type BaseTrack struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Resource string `json:"resourceRef"`
	Color    string `json:"color,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// OverlaySound is a one-shot sound replayed at random intervals on top of the base track.
type OverlaySound struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Resource      string `json:"resourceRef"`
	MinIntervalMs int64  `json:"minIntervalMs"`
	MaxIntervalMs int64  `json:"maxIntervalMs"`
	Color         string `json:"color,omitempty"`
	Icon          string `json:"icon,omitempty"`
}

// MinInterval returns the lower replay bound as a duration.
func (o OverlaySound) MinInterval() time.Duration {
	return time.Duration(o.MinIntervalMs) * time.Millisecond
}

// MaxInterval returns the upper replay bound as a duration.
func (o OverlaySound) MaxInterval() time.Duration {
	return time.Duration(o.MaxIntervalMs) * time.Millisecond
}

// file is the on-disk and over-the-wire representation.
type file struct {
	Bases    []BaseTrack    `json:"bases"`
	Overlays []OverlaySound `json:"overlays"`
}

// Catalog is immutable once built. All accessors return copies.
type Catalog struct {
	bases    []BaseTrack
	overlays []OverlaySound
	baseIdx  map[string]int
	overIdx  map[string]int
}

// New validates the given definitions and builds a catalog from them.
func New(bases []BaseTrack, overlays []OverlaySound) (*Catalog, error) {
	if err := validate(bases, overlays); err != nil {
		return nil, err
	}

	c := &Catalog{
		bases:    append([]BaseTrack(nil), bases...),
		overlays: append([]OverlaySound(nil), overlays...),
		baseIdx:  make(map[string]int, len(bases)),
		overIdx:  make(map[string]int, len(overlays)),
	}
	for i, b := range c.bases {
		c.baseIdx[b.ID] = i
	}
	for i, o := range c.overlays {
		c.overIdx[o.ID] = i
	}
	return c, nil
}

// Parse decodes a JSON catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(f.Bases, f.Overlays)
}

// Marshal encodes the catalog back to its JSON document form.
func (c *Catalog) Marshal() ([]byte, error) {
	return json.MarshalIndent(file{Bases: c.bases, Overlays: c.overlays}, "", "  ")
}

func validate(bases []BaseTrack, overlays []OverlaySound) error {
	var errs []error
	seen := make(map[string]bool)

	check := func(kind, id, resource string) {
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("%w: %s with empty id", ErrInvalidCatalog, kind))
			return
		case seen[id]:
			errs = append(errs, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, id))
		}
		seen[id] = true
		if resource == "" {
			errs = append(errs, fmt.Errorf("%w: %s %q has no resourceRef", ErrInvalidCatalog, kind, id))
		}
	}

	for _, b := range bases {
		check("base", b.ID, b.Resource)
	}
	for _, o := range overlays {
		check("overlay", o.ID, o.Resource)
		if o.MinIntervalMs <= 0 {
			errs = append(errs, fmt.Errorf("%w: overlay %q minIntervalMs must be > 0, got %d", ErrInvalidCatalog, o.ID, o.MinIntervalMs))
		}
		if o.MaxIntervalMs > IntervalCapMs {
			errs = append(errs, fmt.Errorf("%w: overlay %q maxIntervalMs %d exceeds %d (24h)", ErrInvalidCatalog, o.ID, o.MaxIntervalMs, IntervalCapMs))
		}
		if o.MaxIntervalMs < o.MinIntervalMs {
			errs = append(errs, fmt.Errorf("%w: overlay %q maxIntervalMs %d < minIntervalMs %d", ErrInvalidCatalog, o.ID, o.MaxIntervalMs, o.MinIntervalMs))
		}
	}

	return errors.Join(errs...)
}

// Bases returns all base tracks in definition order.
func (c *Catalog) Bases() []BaseTrack {
	return append([]BaseTrack(nil), c.bases...)
}

// Overlays returns all overlay sounds in definition order.
func (c *Catalog) Overlays() []OverlaySound {
	return append([]OverlaySound(nil), c.overlays...)
}

// Base looks up a base track by id.
func (c *Catalog) Base(id string) (BaseTrack, error) {
	i, ok := c.baseIdx[id]
	if !ok {
		return BaseTrack{}, fmt.Errorf("%w: base %q", ErrNotFound, id)
	}
	return c.bases[i], nil
}

// Overlay looks up an overlay sound by id.
func (c *Catalog) Overlay(id string) (OverlaySound, error) {
	i, ok := c.overIdx[id]
	if !ok {
		return OverlaySound{}, fmt.Errorf("%w: overlay %q", ErrNotFound, id)
	}
	return c.overlays[i], nil
}

// IsBase reports whether id names a base track.
func (c *Catalog) IsBase(id string) bool {
	_, ok := c.baseIdx[id]
	return ok
}

// IsOverlay reports whether id names an overlay sound.
func (c *Catalog) IsOverlay(id string) bool {
	_, ok := c.overIdx[id]
	return ok
}

// Has reports whether id names any sound.
func (c *Catalog) Has(id string) bool {
	return c.IsBase(id) || c.IsOverlay(id)
}

// IDs returns every sound id, bases first.
func (c *Catalog) IDs() []string {
	ids := lo.Map(c.bases, func(b BaseTrack, _ int) string { return b.ID })
	return append(ids, lo.Map(c.overlays, func(o OverlaySound, _ int) string { return o.ID })...)
}

// Title returns the display title for any sound id, or the id itself if unknown.
func (c *Catalog) Title(id string) string {
	if b, err := c.Base(id); err == nil {
		return b.Title
	}
	if o, err := c.Overlay(id); err == nil {
		return o.Title
	}
	return id
}

// SortOverlayIDs orders ids by their position in the catalog, dropping unknown ones.
func (c *Catalog) SortOverlayIDs(ids []string) []string {
	set := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
	return lo.FilterMap(c.overlays, func(o OverlaySound, _ int) (string, bool) {
		return o.ID, set[o.ID]
	})
}
