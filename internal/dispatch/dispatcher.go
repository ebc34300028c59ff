package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// Config tunes the fan-out behavior of a Dispatcher.
type Config struct {
	// BatchSize is the maximum tokens per multicast request. Capped at
	// fanout.MaxBatchTokens, which is the gateway's protocol limit.
	BatchSize int
	// MaxInFlight bounds how many batch requests run concurrently.
	MaxInFlight int
	// Timeout applies to each individual batch request.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 || c.BatchSize > fanout.MaxBatchTokens {
		c.BatchSize = fanout.MaxBatchTokens
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Dispatcher fans one notification payload out to a recipient set in
// bounded-size batches. Each batch is an independent unit of work: a failure
// never aborts the others.
type Dispatcher struct {
	gateway fanout.MulticastGateway
	cfg     Config
	logger  *slog.Logger
}

func NewDispatcher(gateway fanout.MulticastGateway, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "BatchDispatcher"),
	}
}

// Dispatch partitions tokens into consecutive batches, sends them through
// the gateway, and returns one DeliveryResult per token in the original
// token order. It never returns an error: batch failures are folded into
// the results.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, payload fanout.NotificationPayload) []fanout.DeliveryResult {
	if len(tokens) == 0 {
		return nil
	}

	batches := partition(tokens, d.cfg.BatchSize, payload)
	perBatch := make([][]fanout.DeliveryResult, len(batches))

	sem := make(chan struct{}, d.cfg.MaxInFlight)
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, batch fanout.DispatchBatch) {
			defer wg.Done()
			defer func() { <-sem }()
			perBatch[i] = d.sendBatch(ctx, batch)
		}(i, batch)
	}
	wg.Wait()

	// Each slot was written by exactly one goroutine; flattening in slot
	// order restores the original token order.
	results := make([]fanout.DeliveryResult, 0, len(tokens))
	for _, batchResults := range perBatch {
		results = append(results, batchResults...)
	}
	return results
}

func (d *Dispatcher) sendBatch(ctx context.Context, batch fanout.DispatchBatch) []fanout.DeliveryResult {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	results, err := d.gateway.SendMulticast(callCtx, batch)
	if err == nil && len(results) != len(batch.Tokens) {
		err = errMisalignedResponse
	}
	if err != nil {
		d.logger.Warn("Batch dispatch failed; marking every token in it failed",
			"batch", batch.Seq, "tokens", len(batch.Tokens), "err", err)
		failed := make([]fanout.DeliveryResult, len(batch.Tokens))
		for i, token := range batch.Tokens {
			failed[i] = fanout.DeliveryResult{
				Token:       token,
				ErrorReason: "batch-error: " + err.Error(),
			}
		}
		return failed
	}
	return results
}

// partition splits tokens into consecutive batches of at most size entries,
// preserving order. Every token lands in exactly one batch.
func partition(tokens []string, size int, payload fanout.NotificationPayload) []fanout.DispatchBatch {
	batches := make([]fanout.DispatchBatch, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, fanout.DispatchBatch{
			Seq:     len(batches),
			Tokens:  tokens[start:end],
			Payload: payload,
		})
	}
	return batches
}
