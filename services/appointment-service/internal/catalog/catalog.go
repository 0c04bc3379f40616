// Package catalog holds the clinic's service menu, seeded at process start.
package catalog

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// Catalog is an immutable, ordered set of services keyed by title.
type Catalog struct {
	entries []model.CatalogEntry
	byTitle map[string]model.CatalogEntry
}

// Default is the clinic's standard menu. Prices are in minor units.
func Default() *Catalog {
	c, err := New([]model.CatalogEntry{
		{ID: "general-checkup", Title: "General Checkup", PriceMinor: 100_00, RequiredSittings: 1},
		{ID: "root-canal", Title: "Root Canal", PriceMinor: 2000_00, RequiredSittings: 3},
		{ID: "teeth-whitening", Title: "Teeth Whitening", PriceMinor: 2000_00, RequiredSittings: 1},
		{ID: "dental-cleaning", Title: "Dental Cleaning", PriceMinor: 750_00, RequiredSittings: 1},
		{ID: "braces-aligners", Title: "Braces & Aligners", PriceMinor: 30000_00, RequiredSittings: 12},
		{ID: "invisalign", Title: "Invisalign", PriceMinor: 100000_00, RequiredSittings: 10},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func New(entries []model.CatalogEntry) (*Catalog, error) {
	c := &Catalog{byTitle: make(map[string]model.CatalogEntry, len(entries))}
	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			return nil, fmt.Errorf("catalog entry %q has no title", e.ID)
		}
		if e.RequiredSittings < 1 {
			return nil, fmt.Errorf("catalog entry %q needs at least one sitting", e.Title)
		}
		key := normalize(e.Title)
		if _, dup := c.byTitle[key]; dup {
			return nil, fmt.Errorf("duplicate catalog title %q", e.Title)
		}
		c.byTitle[key] = e
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Lookup finds an entry by title, ignoring case and surrounding space.
func (c *Catalog) Lookup(title string) (model.CatalogEntry, error) {
	e, ok := c.byTitle[normalize(title)]
	if !ok {
		return model.CatalogEntry{}, fmt.Errorf("%w: %q", model.ErrUnknownService, title)
	}
	return e, nil
}

func (c *Catalog) Entries() []model.CatalogEntry {
	out := make([]model.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
