package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"hdbsearch/internal/llm"
	"hdbsearch/internal/model"
)

// NoResultsMessage is the reply when retrieval found nothing
const NoResultsMessage = "No flats found matching your criteria."

const previewLimit = 5

const summaryPrompt = `
Summarize the following HDB flats near %s:

Flats data (first %d of %d):
%s

Total flats found: %d

Please provide a concise summary that includes:
1. Price range
2. Closest flats to MRT stations (use the actual distances like "350m", "1.2km")
3. Best value picks
4. Any notable patterns

Format distances in a human-readable way (e.g., "350m" not "0.35km").
`

// Summarizer appends one assistant message describing the enriched listings.
type Summarizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewSummarizer creates the summary stage
func NewSummarizer(completer llm.Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		completer: completer,
		logger:    orDefault(logger).With("stage", "summarize"),
	}
}

// Name implements Stage
func (s *Summarizer) Name() string { return "summarize" }

// previewItem field order is the order the model sees
type previewItem struct {
	Block      any    `json:"block"`
	Street     any    `json:"street"`
	Price      string `json:"price"`
	NearestMRT string `json:"nearest_mrt"`
	Distance   string `json:"distance"`
}

// Run implements Stage. Empty results produce NoResultsMessage without a
// completion call. When the completion fails a fallback message naming the
// listing count is appended instead.
func (s *Summarizer) Run(ctx context.Context, state model.QueryState) model.QueryState {
	logger := loggerFor(ctx, s.logger)
	listings := state.EnrichedListings
	logger.Info("Summarizing listings", "count", len(listings))

	if len(listings) == 0 {
		return state.WithMessage(model.Message{Role: model.RoleAssistant, Content: NoResultsMessage})
	}

	prompt, err := BuildSummaryPrompt(state)
	if err != nil {
		logger.Error("Failed to build summary prompt", "error", err)
		return state.WithMessage(model.Message{Role: model.RoleAssistant, Content: fallbackSummary(len(listings))})
	}

	summary, err := s.complete(ctx, logger, prompt)
	if err != nil {
		logger.Warn("Summary completion failed, using fallback", "error", err)
		summary = fallbackSummary(len(listings))
	}
	return state.WithMessage(model.Message{Role: model.RoleAssistant, Content: summary})
}

// complete streams deltas to the event callback when both the completer and
// the caller support it
func (s *Summarizer) complete(ctx context.Context, logger *slog.Logger, prompt string) (string, error) {
	sc, ok := s.completer.(llm.StreamCompleter)
	if cb := eventsFrom(ctx); ok && cb != nil {
		return sc.CompleteStream(ctx, prompt, func(delta string) error {
			emit(ctx, logger, EventDelta, map[string]any{"content": delta})
			return nil
		})
	}
	return s.completer.Complete(ctx, prompt)
}

// BuildSummaryPrompt renders the summary prompt for the enriched listings
func BuildSummaryPrompt(state model.QueryState) (string, error) {
	listings := state.EnrichedListings
	preview := make([]previewItem, 0, previewLimit)
	for _, l := range listings[:min(previewLimit, len(listings))] {
		preview = append(preview, toPreview(l))
	}

	data, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal preview: %w", err)
	}
	return fmt.Sprintf(summaryPrompt, summaryTarget(state), len(preview), len(listings), data, len(listings)), nil
}

func summaryTarget(state model.QueryState) string {
	switch {
	case state.StationName != nil && *state.StationName != "":
		return *state.StationName
	case state.District != nil && *state.District != "":
		return *state.District
	default:
		return "the area"
	}
}

func toPreview(l model.Listing) previewItem {
	station := "Unknown"
	if l[model.FieldNearestStation] != nil {
		station = strings.ReplaceAll(l.Text(model.FieldNearestStation), " MRT STATION", "")
	}
	dist := "N/A"
	if l[model.FieldDistanceFormatted] != nil {
		dist = l.Text(model.FieldDistanceFormatted)
	}
	return previewItem{
		Block:      l[model.FieldBlock],
		Street:     l[model.FieldStreetName],
		Price:      FormatPrice(l[model.FieldResalePrice]),
		NearestMRT: station,
		Distance:   dist,
	}
}

// FormatPrice renders a price with thousands separators: 450000 -> "$450,000".
// A missing price renders as "$0".
func FormatPrice(v any) string {
	if v == nil {
		return "$0"
	}
	f, ok := model.ToFloat(v)
	if !ok {
		return "$" + model.Listing{"v": v}.Text("v")
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return "$" + humanize.Comma(int64(f))
	}
	return "$" + humanize.Commaf(f)
}

func fallbackSummary(n int) string {
	return fmt.Sprintf("Found %d flats matching your criteria, but a summary could not be generated right now.", n)
}

// FinalMessage returns the content of the last assistant message
func FinalMessage(conversation []model.Message) (string, bool) {
	return model.NewQueryState(conversation).LastAssistantMessage()
}
