package service

import (
	"context"
	"log/slog"

	"hdbsearch/internal/district"
	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
	"hdbsearch/internal/utils"
)

// StationResolver replaces the district with the one served by a mentioned
// station.
type StationResolver struct {
	tools     ToolInvoker
	districts *district.Table
	logger    *slog.Logger
}

// NewStationResolver creates the station resolution stage. A nil table
// selects the embedded default.
func NewStationResolver(tools ToolInvoker, districts *district.Table, logger *slog.Logger) *StationResolver {
	if districts == nil {
		districts = district.MustDefault()
	}
	return &StationResolver{
		tools:     tools,
		districts: districts,
		logger:    orDefault(logger).With("stage", "station_resolve"),
	}
}

// Name implements Stage
func (r *StationResolver) Name() string { return "station_resolve" }

// Run implements Stage. A resolved district always overwrites the one from
// intent extraction; on any failure the state is returned unchanged.
func (r *StationResolver) Run(ctx context.Context, state model.QueryState) model.QueryState {
	logger := loggerFor(ctx, r.logger)

	if state.StationName == nil {
		logger.Debug("No station mentioned, skipping")
		return state
	}
	station := *state.StationName

	result, err := r.tools.Invoke(ctx, gateway.ToolStationDistricts, map[string]any{"mrt_station": station})
	if err != nil {
		logger.Warn("Station lookup failed", "station", station, "error", err)
		return state
	}
	rows, err := utils.DecodeRows(result)
	if err != nil {
		logger.Warn("Malformed station lookup result", "station", station, "error", err)
	}
	if len(rows) == 0 {
		logger.Info("No districts for station, keeping district", "station", station)
		return state
	}

	name, code, ok := r.resolve(rows)
	if !ok {
		logger.Warn("No mapped district code for station", "station", station, "first_code", code)
		return state
	}

	logger.Info("Resolved station", "station", station, "code", code, "district", name)
	state.District = model.StringPtr(name)
	return state
}

// resolve maps the first row's code, falling back to the first mappable
// code in the remaining rows.
func (r *StationResolver) resolve(rows []map[string]any) (name, code string, ok bool) {
	first := districtCode(rows[0])
	if name, ok := r.districts.Resolve(first); ok {
		return name, first, true
	}
	for _, row := range rows[1:] {
		c := districtCode(row)
		if name, ok := r.districts.Resolve(c); ok {
			return name, c, true
		}
	}
	return "", first, false
}

func districtCode(row map[string]any) string {
	l := model.Listing(row)
	if code := l.Text("town"); code != "" {
		return code
	}
	return l.Text("district_code")
}
