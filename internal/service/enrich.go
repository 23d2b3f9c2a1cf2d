package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"hdbsearch/internal/distance"
	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
	"hdbsearch/internal/utils"
)

// EnrichOptions configures the proximity enricher
type EnrichOptions struct {
	DefaultRadius int
	// Concurrency bounds in-flight nearest-station lookups (minimum 1)
	Concurrency int
	// RPS caps lookups per second; 0 disables the limiter
	RPS float64
}

// ProximityEnricher annotates each listing with its nearest station and the
// distance to it.
type ProximityEnricher struct {
	tools   ToolInvoker
	opts    EnrichOptions
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewProximityEnricher creates the enrichment stage
func NewProximityEnricher(tools ToolInvoker, opts EnrichOptions, logger *slog.Logger) *ProximityEnricher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	e := &ProximityEnricher{
		tools:  tools,
		opts:   opts,
		logger: orDefault(logger).With("stage", "enrich"),
	}
	if opts.RPS > 0 {
		burst := max(int(opts.RPS), 1)
		e.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return e
}

// Name implements Stage
func (e *ProximityEnricher) Name() string { return "enrich" }

type coordinate struct {
	lat, lon float64
}

// proximity is the enrichment shared by every listing at one coordinate.
// nil fields are stored as JSON null.
type proximity struct {
	station   any
	raw       any
	formatted any
	unit      any
}

var noProximity = proximity{}

// Run implements Stage. Each distinct coordinate is looked up exactly once
// and the result is broadcast to every listing at that coordinate. The
// radius used is persisted to the state.
func (e *ProximityEnricher) Run(ctx context.Context, state model.QueryState) model.QueryState {
	logger := loggerFor(ctx, e.logger)

	radius := e.opts.DefaultRadius
	if state.ProximityRadius != nil {
		radius = *state.ProximityRadius
	}

	coords, index := uniqueCoordinates(state.Listings)
	logger.Info("Enriching listings", "listings", len(state.Listings), "coordinates", len(coords), "radius", radius)

	results := make([]proximity, len(coords))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, c := range coords {
		g.Go(func() error {
			results[i] = e.lookup(ctx, logger, c, radius)
			return nil
		})
	}
	_ = g.Wait()

	enriched := make([]model.Listing, 0, len(state.Listings))
	for _, l := range state.Listings {
		p := noProximity
		if lat, lon, ok := l.Coordinates(); ok {
			if i, found := index[coordinate{lat, lon}]; found {
				p = results[i]
			}
		}
		out := l.Clone()
		out[model.FieldNearestStation] = p.station
		out[model.FieldDistanceRaw] = p.raw
		out[model.FieldDistanceFormatted] = p.formatted
		out[model.FieldDistanceUnit] = p.unit
		enriched = append(enriched, out)
	}

	if len(enriched) > 0 {
		ex := enriched[0]
		logger.Info("Enrichment complete",
			"example_street", ex.Text(model.FieldStreetName),
			"example_station", ex[model.FieldNearestStation],
			"example_distance", ex[model.FieldDistanceFormatted],
		)
	} else {
		logger.Info("Enrichment complete, no listings")
	}

	state.EnrichedListings = enriched
	state.ProximityRadius = model.IntPtr(radius)
	return state
}

// uniqueCoordinates returns distinct coordinates in first-seen order and an
// index from coordinate to position.
func uniqueCoordinates(listings []model.Listing) ([]coordinate, map[coordinate]int) {
	var coords []coordinate
	index := make(map[coordinate]int)
	for _, l := range listings {
		lat, lon, ok := l.Coordinates()
		if !ok {
			continue
		}
		c := coordinate{lat, lon}
		if _, seen := index[c]; !seen {
			index[c] = len(coords)
			coords = append(coords, c)
		}
	}
	return coords, index
}

func (e *ProximityEnricher) lookup(ctx context.Context, logger *slog.Logger, c coordinate, radius int) proximity {
	empty := proximity{formatted: distance.NotApplicable}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			logger.Warn("Rate limiter wait aborted", "error", err)
			return empty
		}
	}

	result, err := e.tools.Invoke(ctx, gateway.ToolGeospatial, map[string]any{
		"mode":   "nearest_mrt",
		"lat":    c.lat,
		"lon":    c.lon,
		"radius": radius,
	})
	if err != nil {
		logger.Warn("Nearest-station lookup failed", "lat", c.lat, "lon", c.lon, "error", err)
		return empty
	}
	rows, err := utils.DecodeRows(result)
	if err != nil {
		logger.Warn("Malformed nearest-station result", "lat", c.lat, "lon", c.lon, "error", err)
	}
	if len(rows) == 0 {
		return empty
	}

	best := model.Listing(rows[0])
	p := proximity{formatted: distance.NotApplicable}
	if label, ok := best["label"]; ok && label != nil {
		p.station = best.Text("label")
	}
	if raw, ok := best.Float("dist_m"); ok {
		formatted, unit := distance.Format(raw)
		p.raw = raw
		p.formatted = formatted
		p.unit = unit
	}
	return p
}
