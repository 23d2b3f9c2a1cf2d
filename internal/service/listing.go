package service

import (
	"context"
	"log/slog"
	"strings"

	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
	"hdbsearch/internal/utils"
)

// canonicalUnitTypes in match priority order
var canonicalUnitTypes = []string{"4 ROOM", "5 ROOM", "3 ROOM", "2 ROOM"}

// RetrievalDefaults are applied to intent fields left unset
type RetrievalDefaults struct {
	District     string
	UnitType     string
	PriceCeiling int
}

// ListingRetriever fetches resale listings for the current intent.
type ListingRetriever struct {
	tools    ToolInvoker
	defaults RetrievalDefaults
	logger   *slog.Logger
}

// NewListingRetriever creates the retrieval stage
func NewListingRetriever(tools ToolInvoker, defaults RetrievalDefaults, logger *slog.Logger) *ListingRetriever {
	return &ListingRetriever{
		tools:    tools,
		defaults: defaults,
		logger:   orDefault(logger).With("stage", "retrieve"),
	}
}

// Name implements Stage
func (r *ListingRetriever) Name() string { return "retrieve" }

// Run implements Stage. The applied district, unit type and price ceiling
// are written back to the state; enriched listings are reset.
func (r *ListingRetriever) Run(ctx context.Context, state model.QueryState) model.QueryState {
	logger := loggerFor(ctx, r.logger)

	town := r.defaults.District
	if state.District != nil {
		town = *state.District
	}
	town = strings.ToUpper(strings.TrimSpace(town))

	unitType := r.defaults.UnitType
	if state.UnitType != nil {
		unitType = *state.UnitType
	}
	unitType = NormalizeUnitType(unitType)

	price := r.defaults.PriceCeiling
	if state.PriceCeiling != nil {
		price = *state.PriceCeiling
	}

	logger.Info("Fetching listings", "district", town, "unit_type", unitType, "price_ceiling", price)

	listings := []model.Listing{}
	result, err := r.tools.Invoke(ctx, gateway.ToolListFlats, map[string]any{
		"town":      town,
		"max_price": price,
		"flat_type": unitType,
	})
	if err != nil {
		logger.Warn("Listing search failed", "error", err)
	} else {
		rows, err := utils.DecodeRows(result)
		if err != nil {
			logger.Warn("Malformed listing search result", "error", err)
		}
		for _, row := range rows {
			listings = append(listings, model.Listing(row))
		}
	}

	logger.Info("Retrieved listings", "count", len(listings))
	emit(ctx, logger, EventListings, map[string]any{"count": len(listings)})

	state.District = model.StringPtr(town)
	state.UnitType = model.StringPtr(unitType)
	state.PriceCeiling = model.IntPtr(price)
	state.Listings = listings
	state.EnrichedListings = []model.Listing{}
	return state
}

// NormalizeUnitType maps free-form unit type text to a canonical "N ROOM"
// label. Text matching none of the canonical labels is returned normalized.
//
//	"4-room" -> "4 ROOM"
//	"5rm"    -> "5 ROOM"
//	"studio" -> "STUDIO"
func NormalizeUnitType(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(strings.ToLower(s), "rm", " room")
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	for _, canonical := range canonicalUnitTypes {
		if strings.Contains(s, canonical) {
			return canonical
		}
	}
	return s
}
