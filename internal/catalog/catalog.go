package catalog

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	models "github.com/CodeAndHammer/upjguesser/internal/models"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

var ErrEmptyCatalog = errors.New("catalog has no usable locations")

// Campus map framing used by both the guessing and the result map.
var (
	CampusCenter = orb.Point{-78.833958, 40.266522}
	CampusBounds = orb.MultiPoint{
		{-78.828781, 40.263739},
		{-78.837729, 40.269451},
	}.Bound()
)

const (
	DefaultZoom = 17
	MinZoom     = 16
	MaxZoom     = 19
)

// Catalog is the immutable set of photo locations rounds are drawn from.
type Catalog struct {
	locations []models.Location
	view      models.MapView
}

func New(locations []models.Location) (*Catalog, error) {
	usable := lo.Filter(locations, func(l models.Location, _ int) bool {
		if strings.TrimSpace(l.Image) == "" || strings.TrimSpace(l.Name) == "" {
			util.LogWarn("Skipping location %d: missing image or name", l.ID)
			return false
		}
		return true
	})
	if len(usable) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{
		locations: usable,
		view: models.MapView{
			Center:  CampusCenter,
			Bounds:  CampusBounds,
			Zoom:    DefaultZoom,
			MinZoom: MinZoom,
			MaxZoom: MaxZoom,
		},
	}, nil
}

// Default is the built-in campus catalog.
func Default() *Catalog {
	c, _ := New([]models.Location{
		{ID: 1, Image: "images/location1.jpg", Lat: 40.2661444, Lon: -78.8320306, Name: "Bench Area"},
	})
	return c
}

func Load(path string) (*Catalog, error) {
	util.LogInfo("Loading locations from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list models.LocationList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	c, err := New(list.Locations)
	if err != nil {
		return nil, err
	}
	util.LogInfo("Successfully loaded %d locations", c.Len())
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.locations)
}

func (c *Catalog) View() models.MapView {
	return c.view
}

// Pick selects a location uniformly at random. Rounds draw with replacement,
// so the same location can come up again in a session.
func (c *Catalog) Pick(ctx context.Context) models.Location {
	select {
	case <-ctx.Done():
		util.LogWarnCtx(ctx, "Pick cancelled: %v", ctx.Err())
		return c.locations[0]
	default:
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.locations))))
	if err != nil {
		util.LogWarnCtx(ctx, "Error generating random number: %v, using fallback", err)
		return c.locations[0]
	}

	util.LogInfoCtx(ctx, "Selected random location index: %d", n.Int64())
	return c.locations[n.Int64()]
}
