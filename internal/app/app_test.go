package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/config"
	"hdbsearch/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM:    config.LLMConfig{Provider: config.ProviderOpenAI},
		OpenAI: config.OpenAIConfig{APIBase: "http://127.0.0.1:1", ChatModel: "test", Timeout: 1},
		Gateway: config.GatewayConfig{
			Mode:    config.GatewayToolbox,
			URL:     "http://127.0.0.1:1",
			Timeout: time.Second,
		},
		Pipeline: config.PipelineConfig{
			DefaultDistrict:     "TOA PAYOH",
			DefaultUnitType:     "4 ROOM",
			DefaultPriceCeiling: 600000,
			DefaultRadius:       800,
			EnrichConcurrency:   2,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresPipelineWithoutContactingBackends(t *testing.T) {
	a, err := New(context.Background(), testConfig(), "test", discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"intent", "station_resolve", "retrieve", "enrich", "summarize"}, a.Pipeline.Stages())
	assert.NotNil(t, a.Gateway)
}

func TestNewMCPMode(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.Mode = config.GatewayMCP

	a, err := New(context.Background(), cfg, "test", discardLogger())
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestNewRejectsUnknownGatewayMode(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.Mode = "grpc"

	_, err := New(context.Background(), cfg, "test", discardLogger())
	assert.ErrorContains(t, err, "unknown gateway mode")
}

func TestNewRejectsMissingDistrictFile(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.DistrictsFile = "/nonexistent/districts.yaml"

	_, err := New(context.Background(), cfg, "test", discardLogger())
	assert.ErrorContains(t, err, "load district table")
}

func TestDisabledLLMStillAnswers(t *testing.T) {
	a, err := New(context.Background(), testConfig(), "test", discardLogger())
	require.NoError(t, err)
	defer a.Close()

	// no LLM and an unreachable tool service still produce a reply
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	state, err := a.Pipeline.Run(ctx, model.NewQueryState([]model.Message{{Role: model.RoleUser, Content: "4-room flats in Toa Payoh"}}))
	require.NoError(t, err)
	reply, ok := state.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "No flats found matching your criteria.", reply)
}
