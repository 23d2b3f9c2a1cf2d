package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/gateway"
	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

var testDefaults = service.RetrievalDefaults{
	District:     "TOA PAYOH",
	UnitType:     "4 ROOM",
	PriceCeiling: 600000,
}

func TestNormalizeUnitType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "4-room", want: "4 ROOM"},
		{input: "4 room", want: "4 ROOM"},
		{input: "4rm", want: "4 ROOM"},
		{input: "5rm", want: "5 ROOM"},
		{input: "5RM", want: "5 ROOM"},
		{input: "3 ROOM", want: "3 ROOM"},
		{input: "2-room flexi", want: "2 ROOM"},
		{input: "studio", want: "STUDIO"},
		{input: "executive", want: "EXECUTIVE"},
		{input: "  multi   generation ", want: "MULTI GENERATION"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, service.NormalizeUnitType(tt.input))
		})
	}
}

func TestListingRetrieverAppliesAndPersistsDefaults(t *testing.T) {
	tools := newFakeTools().on(gateway.ToolListFlats, func(map[string]any) (any, error) {
		return []any{map[string]any{"block": "123", "street_name": "LOR 1 TOA PAYOH"}}, nil
	})
	stage := service.NewListingRetriever(tools.invoker(), testDefaults, nil)

	out := stage.Run(context.Background(), userState("anything"))

	calls := tools.callsTo(gateway.ToolListFlats)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"town": "TOA PAYOH", "max_price": 600000, "flat_type": "4 ROOM"}, calls[0].Args)

	require.NotNil(t, out.District)
	require.NotNil(t, out.UnitType)
	require.NotNil(t, out.PriceCeiling)
	assert.Equal(t, "TOA PAYOH", *out.District)
	assert.Equal(t, "4 ROOM", *out.UnitType)
	assert.Equal(t, 600000, *out.PriceCeiling)
	assert.Len(t, out.Listings, 1)
}

func TestListingRetrieverUsesIntent(t *testing.T) {
	tools := newFakeTools().on(gateway.ToolListFlats, func(map[string]any) (any, error) {
		return `[{"block": "1"}, {"block": "2"}]`, nil
	})
	stage := service.NewListingRetriever(tools.invoker(), testDefaults, nil)

	in := userState("q")
	in.District = model.StringPtr("bukit panjang")
	in.UnitType = model.StringPtr("5rm")
	in.PriceCeiling = model.IntPtr(0)
	in.EnrichedListings = []model.Listing{{"block": "stale"}}

	out := stage.Run(context.Background(), in)

	calls := tools.callsTo(gateway.ToolListFlats)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"town": "BUKIT PANJANG", "max_price": 0, "flat_type": "5 ROOM"}, calls[0].Args)
	assert.Len(t, out.Listings, 2)
	assert.NotNil(t, out.EnrichedListings)
	assert.Empty(t, out.EnrichedListings)
}

func TestListingRetrieverMalformedResults(t *testing.T) {
	tests := []struct {
		name   string
		result any
		err    error
	}{
		{name: "null", result: nil},
		{name: "JSON null", result: "null"},
		{name: "invalid JSON", result: "{oops"},
		{name: "object", result: map[string]any{"block": "1"}},
		{name: "JSON object", result: `{"rows": []}`},
		{name: "tool error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := newFakeTools().on(gateway.ToolListFlats, func(map[string]any) (any, error) {
				return tt.result, tt.err
			})
			stage := service.NewListingRetriever(tools.invoker(), testDefaults, nil)

			out := stage.Run(context.Background(), userState("q"))
			assert.NotNil(t, out.Listings)
			assert.Empty(t, out.Listings)
			assert.Empty(t, out.EnrichedListings)
		})
	}
}
