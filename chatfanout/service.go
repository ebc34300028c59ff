// Package chatfanout assembles the chat fan-out service.
package chatfanout

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-chat-fanout-service/chatfanout/config"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/api"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/cleanup"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/dispatch"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/pipeline"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/resolve"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[fanout.ChatMessage]
	logger          *slog.Logger
}

// New assembles the service. The gateway and registry clients are
// constructed once at process start and passed in by reference; the service
// holds no other state between invocations.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	gateway fanout.MulticastGateway,
	registry fanout.TokenRegistry,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Pipeline components
	resolver := resolve.NewResolver(registry, logger)
	dispatcher := dispatch.NewDispatcher(gateway, dispatch.Config{
		BatchSize:   cfg.Fanout.BatchSize,
		MaxInFlight: cfg.Fanout.MaxInFlightBatches,
		Timeout:     cfg.Fanout.DispatchTimeout,
	}, logger)
	maintainer := cleanup.NewMaintainer(registry, cfg.Fanout.CleanupTimeout, logger)
	processor := pipeline.NewProcessor(resolver, dispatcher, maintainer, logger)

	// 3. Pipeline
	streamingService, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.NewChatMessageTransformer(logger),
		processor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. API (Token Registration)
	tokenAPI := api.NewTokenAPI(registry, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("PUT /api/v1/tokens", tokenAPI.RegisterToken)
	handle("DELETE /api/v1/tokens", tokenAPI.UnregisterToken)

	// CORS preflight for the API namespace
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	})))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
