package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"hdbsearch/internal/district"
	"hdbsearch/internal/llm"
	"hdbsearch/internal/model"
	"hdbsearch/internal/utils"
)

const intentPrompt = `
Extract user intent. Return JSON with these fields (include even if null):
{
  "town": "string or null",
  "mrt_station": "string or null",
  "flat_type": "string or null",
  "max_price": "number or null",
  "mrt_radius": "number or null"
}

RULES:
1. MRT mentions: "near <name> MRT", "<name> station", "around <name>" → extract "mrt_station"
   Examples: "Bukit Panjang MRT" → "BUKIT PANJANG", "Toa Payoh station" → "TOA PAYOH"

2. Town mentions (explicit): "in <town>", "<town> area" → extract "town"
   Examples: "in Bedok", "Tampines area" → "BEDOK", "TAMPINES"

3. Flat types: "4-room", "4 room", "4rm" → "4 ROOM"; "5-room" → "5 ROOM"

4. Prices: "$500k", "500k", "500,000", "under 600k" → numeric

5. Radius: "within 500m", "800m" → numeric (in meters)

6. Use UPPERCASE for town/station names.

7. Return null if not mentioned. Return ALL five fields.

User query: "%s"

RETURN JSON ONLY. NO EXPLANATION.
`

// IntentExtractor turns the first user message into the five intent fields
// using the completion service.
type IntentExtractor struct {
	completer llm.Completer
	districts *district.Table
	logger    *slog.Logger
}

// NewIntentExtractor creates the intent stage. districts may be nil, in
// which case district names are only normalized.
func NewIntentExtractor(completer llm.Completer, districts *district.Table, logger *slog.Logger) *IntentExtractor {
	return &IntentExtractor{
		completer: completer,
		districts: districts,
		logger:    orDefault(logger).With("stage", "intent"),
	}
}

// Name implements Stage
func (e *IntentExtractor) Name() string { return "intent" }

// Run implements Stage. The state passes through untouched when the
// conversation has no user message.
func (e *IntentExtractor) Run(ctx context.Context, state model.QueryState) model.QueryState {
	logger := loggerFor(ctx, e.logger)

	query, ok := state.FirstUserMessage()
	if !ok || strings.TrimSpace(query) == "" {
		logger.Info("No user message, skipping intent extraction")
		return state
	}

	intent, err := e.Extract(ctx, query)
	if err != nil {
		logger.Warn("Intent extraction failed, using empty intent", "error", err)
	}
	logger.Info("Parsed intent",
		"district", deref(intent.District),
		"station", deref(intent.StationName),
		"unit_type", deref(intent.UnitType),
		"price_ceiling", derefInt(intent.PriceCeiling),
		"radius", derefInt(intent.ProximityRadius),
	)
	emit(ctx, logger, EventIntent, intent)

	return state.WithIntent(intent)
}

// Extract asks the completion service for the intent of query. On any error
// the returned intent is empty.
func (e *IntentExtractor) Extract(ctx context.Context, query string) (model.Intent, error) {
	resp, err := e.completer.Complete(ctx, fmt.Sprintf(intentPrompt, query))
	if err != nil {
		return model.Intent{}, fmt.Errorf("completion: %w", err)
	}

	content := utils.StripCodeFence(resp)
	var raw map[string]any
	if err := utils.ParseAIJSON(content, &raw); err != nil {
		return model.Intent{}, fmt.Errorf("decode intent %q: %w", content, err)
	}
	return e.fromRaw(raw), nil
}

func (e *IntentExtractor) fromRaw(raw map[string]any) model.Intent {
	var in model.Intent

	if town := upperText(raw["town"]); town != nil {
		if e.districts != nil {
			if canonical, ok := e.districts.Canonical(*town); ok {
				town = &canonical
			}
		}
		in.District = town
	}
	in.StationName = upperText(raw["mrt_station"])
	in.UnitType = upperText(raw["flat_type"])

	if price, ok := model.ToFloat(raw["max_price"]); ok && price >= 0 && !math.IsInf(price, 0) {
		in.PriceCeiling = model.IntPtr(int(math.Round(price)))
	}
	if radius, ok := model.ToFloat(raw["mrt_radius"]); ok && radius > 0 && !math.IsInf(radius, 0) {
		if r := int(math.Round(radius)); r > 0 {
			in.ProximityRadius = model.IntPtr(r)
		}
	}
	return in
}

// upperText trims and upper-cases a string value. Non-strings, blanks and
// the literal "null" yield nil.
func upperText(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "" || s == "NULL" || s == "NONE" {
		return nil
	}
	return &s
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
