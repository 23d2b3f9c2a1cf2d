package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/district"
	"hdbsearch/internal/mock"
	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

func TestIntentExtractor(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     model.Intent
	}{
		{
			name:     "fenced JSON",
			response: "```json\n{\"town\": null, \"mrt_station\": \"Bukit Panjang\", \"flat_type\": \"4 ROOM\", \"max_price\": 500000, \"mrt_radius\": null}\n```",
			want: model.Intent{
				StationName:  model.StringPtr("BUKIT PANJANG"),
				UnitType:     model.StringPtr("4 ROOM"),
				PriceCeiling: model.IntPtr(500000),
			},
		},
		{
			name:     "bare fence and numeric strings",
			response: "```\n{\"town\": \"bedok\", \"max_price\": \"450000\", \"mrt_radius\": \"500\"}\n```",
			want: model.Intent{
				District:        model.StringPtr("BEDOK"),
				PriceCeiling:    model.IntPtr(450000),
				ProximityRadius: model.IntPtr(500),
			},
		},
		{
			name:     "invalid numbers dropped",
			response: `{"town": "Tampines", "max_price": -1, "mrt_radius": 0}`,
			want:     model.Intent{District: model.StringPtr("TAMPINES")},
		},
		{
			name:     "district canonicalized",
			response: `{"town": "Kallang"}`,
			want:     model.Intent{District: model.StringPtr("KALLANG/WHAMPOA")},
		},
		{
			name:     "unknown district kept normalized",
			response: `{"town": " marina   bay "}`,
			want:     model.Intent{District: model.StringPtr("MARINA BAY")},
		},
		{
			name:     "not JSON",
			response: "Sorry, I cannot help with that.",
			want:     model.Intent{},
		},
		{
			name:     "JSON array",
			response: `["BEDOK"]`,
			want:     model.Intent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := service.NewIntentExtractor(reply(tt.response), district.MustDefault(), nil)

			in := userState("find me a flat")
			in.District = model.StringPtr("STALE")
			in.Listings = []model.Listing{{"block": "1"}}

			out := stage.Run(context.Background(), in)
			assert.Equal(t, tt.want, out.Intent())
			assert.Equal(t, in.Conversation, out.Conversation)
			assert.Equal(t, in.Listings, out.Listings)
			assert.NotNil(t, out.EnrichedListings)
		})
	}
}

func TestIntentExtractorPrompt(t *testing.T) {
	var prompt string
	completer := &mock.Completer{
		CompleteFn: func(_ context.Context, p string) (string, error) {
			prompt = p
			return `{}`, nil
		},
	}
	stage := service.NewIntentExtractor(completer, nil, nil)

	conv := []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "4-room near Bishan MRT"},
		{Role: model.RoleUser, Content: "second message"},
	}
	stage.Run(context.Background(), model.NewQueryState(conv))

	assert.Contains(t, prompt, `User query: "4-room near Bishan MRT"`)
	assert.Contains(t, prompt, "RETURN JSON ONLY. NO EXPLANATION.")
	assert.Contains(t, prompt, `"mrt_radius": "number or null"`)
	assert.NotContains(t, prompt, "second message")
}

func TestIntentExtractorCompletionError(t *testing.T) {
	completer := &mock.Completer{
		CompleteFn: func(context.Context, string) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}
	stage := service.NewIntentExtractor(completer, nil, nil)

	in := userState("flats in Bedok")
	in.UnitType = model.StringPtr("3 ROOM")
	out := stage.Run(context.Background(), in)
	assert.True(t, out.Intent().IsEmpty())
}

func TestIntentExtractorNoUserMessage(t *testing.T) {
	calls := 0
	completer := &mock.Completer{
		CompleteFn: func(context.Context, string) (string, error) {
			calls++
			return `{"town": "BEDOK"}`, nil
		},
	}
	stage := service.NewIntentExtractor(completer, nil, nil)

	in := model.NewQueryState([]model.Message{{Role: model.RoleAssistant, Content: "hello"}})
	in.District = model.StringPtr("YISHUN")

	out := stage.Run(context.Background(), in)
	require.Equal(t, 0, calls)
	assert.Equal(t, in, out)
}
