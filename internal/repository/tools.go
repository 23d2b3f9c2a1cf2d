package repository

import (
	"context"
	"fmt"
	"strings"

	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
)

// nearestLimit is how many stations a nearest_mrt query returns
const nearestLimit = 1

// ToolStore is the query surface the in-process tools run against
type ToolStore interface {
	StationDistricts(ctx context.Context, station string) ([]StationDistrict, error)
	ListFlats(ctx context.Context, town, flatType string, maxPrice float64) ([]Flat, error)
	NearestStations(ctx context.Context, lat, lon float64, radiusMeters float64, limit int) ([]NearbyStation, error)
}

// ToolLoader serves the tool service contract straight from PostgreSQL
type ToolLoader struct {
	store ToolStore
}

// NewToolLoader creates a loader backed by store
func NewToolLoader(store ToolStore) *ToolLoader {
	return &ToolLoader{store: store}
}

// LoadToolset implements gateway.Loader
func (l *ToolLoader) LoadToolset(ctx context.Context) ([]gateway.Tool, error) {
	return []gateway.Tool{
		sqlTool{name: gateway.ToolStationDistricts, run: l.stationDistricts},
		sqlTool{name: gateway.ToolListFlats, run: l.listFlats},
		sqlTool{name: gateway.ToolGeospatial, run: l.geospatial},
	}, nil
}

type sqlTool struct {
	name string
	run  func(ctx context.Context, args map[string]any) (any, error)
}

func (t sqlTool) Name() string { return t.name }

func (t sqlTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return t.run(ctx, args)
}

func (l *ToolLoader) stationDistricts(ctx context.Context, args map[string]any) (any, error) {
	station, err := textArg(args, "mrt_station")
	if err != nil {
		return nil, err
	}
	rows, err := l.store.StationDistricts(ctx, station)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		row := map[string]any{"mrt_station": r.Station, "town": r.Town}
		if r.DistanceM != nil {
			row["distance_m"] = *r.DistanceM
		}
		out = append(out, row)
	}
	return out, nil
}

func (l *ToolLoader) listFlats(ctx context.Context, args map[string]any) (any, error) {
	town, err := textArg(args, "town")
	if err != nil {
		return nil, err
	}
	flatType, err := textArg(args, "flat_type")
	if err != nil {
		return nil, err
	}
	maxPrice, err := numberArg(args, "max_price")
	if err != nil {
		return nil, err
	}

	flats, err := l.store.ListFlats(ctx, town, flatType, maxPrice)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(flats))
	for _, f := range flats {
		out = append(out, flatRow(f))
	}
	return out, nil
}

func flatRow(f Flat) map[string]any {
	row := map[string]any{
		model.FieldBlock:       f.Block,
		model.FieldStreetName:  f.StreetName,
		model.FieldResalePrice: f.ResalePrice,
		"town":                 f.Town,
		"flat_type":            f.FlatType,
	}
	if f.Lat != nil && f.Lon != nil {
		row[model.FieldLat] = *f.Lat
		row[model.FieldLon] = *f.Lon
	}
	if f.Month != nil {
		row["month"] = *f.Month
	}
	if f.StoreyRange != nil {
		row["storey_range"] = *f.StoreyRange
	}
	if f.FloorAreaSqm != nil {
		row["floor_area_sqm"] = *f.FloorAreaSqm
	}
	return row
}

func (l *ToolLoader) geospatial(ctx context.Context, args map[string]any) (any, error) {
	if mode, _ := args["mode"].(string); mode != "" && mode != "nearest_mrt" {
		return nil, fmt.Errorf("unsupported geospatial mode %q", mode)
	}
	lat, err := numberArg(args, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := numberArg(args, "lon")
	if err != nil {
		return nil, err
	}
	radius, err := numberArg(args, "radius")
	if err != nil {
		return nil, err
	}

	stations, err := l.store.NearestStations(ctx, lat, lon, radius, nearestLimit)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(stations))
	for _, s := range stations {
		out = append(out, map[string]any{"label": s.Label, "dist_m": s.Degrees})
	}
	return out, nil
}

func textArg(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("missing argument %q", key)
	}
	return strings.TrimSpace(s), nil
}

func numberArg(args map[string]any, key string) (float64, error) {
	f, ok := model.ToFloat(args[key])
	if !ok {
		return 0, fmt.Errorf("argument %q is not a number", key)
	}
	return f, nil
}
