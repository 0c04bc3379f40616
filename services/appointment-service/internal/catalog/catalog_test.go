package catalog

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

func TestDefaultLookup(t *testing.T) {
	c := Default()
	e, err := c.Lookup("root canal")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if e.Title != "Root Canal" || e.RequiredSittings != 3 || e.PriceMinor != 200000 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if _, err := c.Lookup("Tooth Extraction"); !errors.Is(err, model.ErrUnknownService) {
		t.Fatalf("expected unknown service, got %v", err)
	}
	if n := len(c.Entries()); n != 6 {
		t.Fatalf("expected 6 entries, got %d", n)
	}
}

func TestNewRejectsBadEntries(t *testing.T) {
	if _, err := New([]model.CatalogEntry{{Title: "X", RequiredSittings: 0}}); err == nil {
		t.Fatal("expected error for zero sittings")
	}
	if _, err := New([]model.CatalogEntry{
		{Title: "X", RequiredSittings: 1},
		{Title: " x ", RequiredSittings: 1},
	}); err == nil {
		t.Fatal("expected duplicate title error")
	}
}
