// Package factory selects the agent runtime named by the configuration.
package factory

import (
	"context"
	"log"

	"github.com/zhouzirui/whats-eat/backend/internal/config"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/langgraph"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/local"
)

// New returns the local eino runtime for RUNTIME_MODE=local and the LangGraph
// client otherwise.
func New(ctx context.Context, cfg *config.Config) (runtime.Runtime, error) {
	switch cfg.Runtime.Mode {
	case config.RuntimeLocal:
		rt, err := local.NewRuntime(ctx, cfg.AI, cfg.Runtime.SummarizerNode)
		if err != nil {
			return nil, err
		}
		log.Printf("[runtime] local chain initialized (model=%s)", cfg.AI.Model)
		return rt, nil
	default:
		log.Printf("[runtime] langgraph at %s (graph=%s, stream=%t)", cfg.Runtime.APIURL, cfg.Runtime.GraphID, cfg.Runtime.Stream)
		return langgraph.NewClient(langgraph.Options{
			BaseURL: cfg.Runtime.APIURL,
			APIKey:  cfg.Runtime.APIKey,
			Timeout: cfg.Runtime.Timeout,
		}), nil
	}
}
