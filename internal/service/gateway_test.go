package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/gateway"
	"hdbsearch/internal/mock"
	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

// toolset adapts fakeTools handlers into gateway tools
func toolset(f *fakeTools) []gateway.Tool {
	var tools []gateway.Tool
	for name, h := range f.handlers {
		tools = append(tools, &mock.Tool{
			NameValue: name,
			InvokeFn:  func(_ context.Context, args map[string]any) (any, error) { return h(args) },
		})
	}
	return tools
}

func TestPipelineOverGateway(t *testing.T) {
	var loads atomic.Int32
	loader := &mock.ToolLoader{
		LoadToolsetFn: func(context.Context) ([]gateway.Tool, error) {
			loads.Add(1)
			return toolset(bukitPanjangTools()), nil
		},
	}
	gw := gateway.New(loader, gateway.WithTimeout(time.Second))

	var prompts []string
	p := service.New(service.Dependencies{
		Completer: scenarioCompleter(&prompts),
		Tools:     gw,
		Defaults:  testDefaults,
		Enrich:    testEnrich,
	})

	for i := 0; i < 3; i++ {
		out, err := p.Run(context.Background(), userState("Find 4-room flats near Bukit Panjang MRT under 500k"))
		require.NoError(t, err)
		require.Len(t, out.EnrichedListings, 3)
		assert.Equal(t, "BUKIT PANJANG MRT STATION", out.EnrichedListings[2][model.FieldNearestStation])
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestPipelineOverGatewayMissingTool(t *testing.T) {
	loader := &mock.ToolLoader{
		LoadToolsetFn: func(context.Context) ([]gateway.Tool, error) {
			// no listing search tool
			return toolset(newFakeTools().on(gateway.ToolStationDistricts, func(map[string]any) (any, error) {
				return `[{"town": "BP"}]`, nil
			})), nil
		},
	}

	var prompts []string
	p := service.New(service.Dependencies{
		Completer: scenarioCompleter(&prompts),
		Tools:     gateway.New(loader),
		Defaults:  testDefaults,
		Enrich:    testEnrich,
	})

	out, err := p.Run(context.Background(), userState("Find 4-room flats near Bukit Panjang MRT under 500k"))
	require.NoError(t, err)
	assert.Empty(t, out.Listings)
	reply, _ := out.LastAssistantMessage()
	assert.Equal(t, service.NoResultsMessage, reply)
	assert.Len(t, prompts, 1)
}
