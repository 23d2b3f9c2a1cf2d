package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hdbsearch/internal/district"
	"hdbsearch/internal/llm"
	"hdbsearch/internal/model"
)

// Pipeline threads a QueryState through its stages in order.
type Pipeline struct {
	stages   []Stage
	recorder RunRecorder
	logger   *slog.Logger
}

// Dependencies wires the standard five-stage pipeline
type Dependencies struct {
	Completer llm.Completer
	Tools     ToolInvoker
	Districts *district.Table
	Defaults  RetrievalDefaults
	Enrich    EnrichOptions
	Recorder  RunRecorder // optional
	Logger    *slog.Logger
}

// New builds the pipeline intent -> station_resolve -> retrieve -> enrich -> summarize
func New(deps Dependencies) *Pipeline {
	logger := orDefault(deps.Logger)
	districts := deps.Districts
	if districts == nil {
		districts = district.MustDefault()
	}
	return NewPipeline(logger, deps.Recorder,
		NewIntentExtractor(deps.Completer, districts, logger),
		NewStationResolver(deps.Tools, districts, logger),
		NewListingRetriever(deps.Tools, deps.Defaults, logger),
		NewProximityEnricher(deps.Tools, deps.Enrich, logger),
		NewSummarizer(deps.Completer, logger),
	)
}

// NewPipeline creates a pipeline over an explicit stage order. recorder may be nil.
func NewPipeline(logger *slog.Logger, recorder RunRecorder, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:   stages,
		recorder: recorder,
		logger:   orDefault(logger).With("component", "pipeline"),
	}
}

// Stages returns the stage names in execution order
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage once. Cancellation of ctx is checked between
// stages and is the only error returned; the partially processed state is
// returned with it.
func (p *Pipeline) Run(ctx context.Context, state model.QueryState) (model.QueryState, error) {
	logger := loggerFor(ctx, p.logger)
	tracer := otel.Tracer(tracerName)

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			logger.Warn("Pipeline canceled", "before_stage", stage.Name(), "error", err)
			runsTotal.WithLabelValues("canceled").Inc()
			return state, err
		}

		emit(ctx, logger, EventStage, map[string]any{"stage": stage.Name()})

		stageCtx, span := tracer.Start(ctx, "pipeline."+stage.Name())
		start := time.Now()
		state = stage.Run(stageCtx, state)
		took := time.Since(start)
		stageDuration.WithLabelValues(stage.Name()).Observe(took.Seconds())
		span.SetAttributes(
			attribute.Int("listings", len(state.Listings)),
			attribute.Int("enriched_listings", len(state.EnrichedListings)),
		)
		span.End()

		logger.Debug("Stage finished", "stage", stage.Name(), "took", took)
	}

	runsTotal.WithLabelValues("completed").Inc()
	listingsReturned.Observe(float64(len(state.EnrichedListings)))
	return state, nil
}

// Query runs the pipeline for a request and builds the API response.
func (p *Pipeline) Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	return p.run(ctx, req)
}

// QueryStream is Query with progress events delivered to callback.
func (p *Pipeline) QueryStream(ctx context.Context, req *model.QueryRequest, callback EventCallback) (*model.QueryResponse, error) {
	return p.run(WithEvents(ctx, callback), req)
}

func (p *Pipeline) run(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Query",
		trace.WithAttributes(attribute.String("run_id", runID)),
	)
	defer span.End()

	state, err := p.Run(ctx, model.NewQueryState(req.Conversation()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reply, _ := state.LastAssistantMessage()
	took := time.Since(startTime).Milliseconds()
	intent := state.Intent()

	if p.recorder != nil {
		query, _ := state.FirstUserMessage()
		rec := model.RunRecord{
			RunID:          runID,
			Query:          query,
			Intent:         intent,
			ResultCount:    len(state.EnrichedListings),
			ResponseTimeMs: int(took),
		}
		// Log run (non-blocking)
		go func() {
			if err := p.recorder.RecordRun(context.Background(), rec); err != nil {
				p.logger.Warn("Failed to record run", "run_id", runID, "error", err)
			}
		}()
	}

	return &model.QueryResponse{
		RunID:            runID,
		Response:         reply,
		Intent:           intent,
		Total:            len(state.EnrichedListings),
		EnrichedListings: state.EnrichedListings,
		Conversation:     state.Conversation,
		Took:             took,
	}, nil
}
