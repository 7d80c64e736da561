package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	catalog "github.com/CodeAndHammer/upjguesser/internal/catalog"
	models "github.com/CodeAndHammer/upjguesser/internal/models"
)

func TestNewSkipsIncompleteLocations(t *testing.T) {
	c, err := catalog.New([]models.Location{
		{ID: 1, Image: "a.jpg", Name: "A"},
		{ID: 2, Image: "", Name: "B"},
		{ID: 3, Image: "c.jpg", Name: " "},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if l := c.Pick(context.Background()); l.ID != 1 {
		t.Errorf("Pick = %+v, want only location 1", l)
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := catalog.New(nil); !errors.Is(err, catalog.ErrEmptyCatalog) {
		t.Errorf("New(nil) err = %v, want ErrEmptyCatalog", err)
	}
}

func TestPickReturnsCatalogLocations(t *testing.T) {
	c, err := catalog.New([]models.Location{
		{ID: 1, Image: "a.jpg", Name: "A"},
		{ID: 2, Image: "b.jpg", Name: "B"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		l := c.Pick(ctx)
		if l.ID != 1 && l.ID != 2 {
			t.Errorf("Unexpected location: %+v", l)
		}
	}
}

func TestPickOnCancelledContextFallsBack(t *testing.T) {
	c := catalog.Default()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if l := c.Pick(ctx); l.Name != "Bench Area" {
		t.Errorf("Pick on cancelled ctx = %+v, want first location", l)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.json")
	body := `{"locations":[{"id":7,"image":"images/x.jpg","lat":40.1,"lon":-78.1,"name":"Library"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l := c.Pick(context.Background())
	if l.ID != 7 || l.Name != "Library" || l.Position().Lat() != 40.1 {
		t.Errorf("Pick = %+v", l)
	}

	if _, err := catalog.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestViewFramesCampus(t *testing.T) {
	v := catalog.Default().View()
	if !v.Bounds.Contains(v.Center) {
		t.Errorf("campus bounds %v should contain center %v", v.Bounds, v.Center)
	}
	if v.MinZoom != 16 || v.MaxZoom != 19 || v.Zoom != 17 {
		t.Errorf("unexpected zoom settings: %+v", v)
	}
}
