// Package modelselect picks the model used for title generation. Titles are
// throwaway single-shot completions, so the selector hunts for the cheapest
// model the host knows about instead of burning the conversation's main
// model on them.
package modelselect

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/eternisai/enchanted-titler/internal/host"
	"github.com/eternisai/enchanted-titler/internal/logger"
)

// defaultProvider receives bare model overrides written without a
// "provider/" prefix.
const defaultProvider = "anthropic"

// cheapPatterns is tested in priority order against model ids,
// case-insensitively, first match wins. "fast" outranks "flash" outranks
// "haiku", and so on.
var cheapPatterns = []string{
	"fast", "flash", "haiku", "mini", "instant", "small", "lite", "turbo", "8b", "7b",
}

// Catalog is the slice of the host API the selector needs.
type Catalog interface {
	ListConnectedProviders(ctx context.Context) ([]string, error)
	ListProvidersWithModels(ctx context.Context) ([]host.Provider, error)
}

// Config narrows auto-discovery. Model is an explicit "provider/model"
// override that bypasses discovery entirely; Provider restricts discovery
// to one provider before the usual ordering applies.
type Config struct {
	Model    string
	Provider string
}

// Selector resolves the title-generation model once per process and caches
// the outcome, including the "nothing found" outcome.
type Selector struct {
	catalog Catalog
	cfg     Config
	logger  *logger.Logger

	once   sync.Once
	choice *host.ModelRef
}

// NewSelector creates a selector over the given catalog.
func NewSelector(catalog Catalog, cfg Config, log *logger.Logger) *Selector {
	return &Selector{
		catalog: catalog,
		cfg:     cfg,
		logger:  log.WithComponent("modelselect"),
	}
}

// Resolve returns the model to use for title generation, or nil when none
// could be determined (the host's default model is used in that case).
// Discovery runs at most once per process; the first caller's context
// governs it.
func (s *Selector) Resolve(ctx context.Context) *host.ModelRef {
	s.once.Do(func() {
		s.choice = s.resolve(ctx)
		if s.choice != nil {
			s.logger.Info("title model resolved", slog.String("model", s.choice.String()))
		} else {
			s.logger.Info("no title model resolved, host default will be used")
		}
	})
	return s.choice
}

func (s *Selector) resolve(ctx context.Context) *host.ModelRef {
	// Explicit configuration always wins, no catalog lookup performed.
	if s.cfg.Model != "" {
		ref := parseModelOverride(s.cfg.Model)
		return &ref
	}

	providers, err := s.catalog.ListProvidersWithModels(ctx)
	if err != nil {
		s.logger.Warn("provider catalog unavailable", slog.String("error", err.Error()))
		return nil
	}

	connected, err := s.catalog.ListConnectedProviders(ctx)
	if err != nil {
		// Discovery still works without connection info, just without the
		// connected-first preference.
		s.logger.Debug("connected provider list unavailable", slog.String("error", err.Error()))
		connected = nil
	}

	for _, provider := range orderProviders(providers, connected, s.cfg.Provider) {
		if modelID := FindCheapestFromModels(provider.ModelIDs()); modelID != "" {
			return &host.ModelRef{ProviderID: provider.ID, ModelID: modelID}
		}
	}

	return nil
}

// FindCheapestFromModels applies the priority pattern list to a provider's
// model ids, first match wins. With no pattern match the provider's first
// model is returned; with no models at all, the empty string.
func FindCheapestFromModels(modelIDs []string) string {
	if len(modelIDs) == 0 {
		return ""
	}

	for _, pattern := range cheapPatterns {
		for _, id := range modelIDs {
			if strings.Contains(strings.ToLower(id), pattern) {
				return id
			}
		}
	}

	return modelIDs[0]
}

// parseModelOverride splits a "provider/model" override, defaulting the
// provider when no separator is present.
func parseModelOverride(override string) host.ModelRef {
	if provider, model, found := strings.Cut(override, "/"); found && provider != "" && model != "" {
		return host.ModelRef{ProviderID: provider, ModelID: model}
	}
	return host.ModelRef{ProviderID: defaultProvider, ModelID: override}
}

// orderProviders computes the discovery order: the configured provider
// first when set, then connected providers (preserves the user's active
// login context), then the rest of the catalog.
func orderProviders(providers []host.Provider, connected []string, preferred string) []host.Provider {
	connectedSet := make(map[string]struct{}, len(connected))
	for _, id := range connected {
		connectedSet[id] = struct{}{}
	}

	ordered := make([]host.Provider, 0, len(providers))
	appended := make(map[string]struct{}, len(providers))

	appendProvider := func(p host.Provider) {
		if _, done := appended[p.ID]; done {
			return
		}
		appended[p.ID] = struct{}{}
		ordered = append(ordered, p)
	}

	if preferred != "" {
		for _, p := range providers {
			if p.ID == preferred {
				appendProvider(p)
			}
		}
	}

	for _, p := range providers {
		if _, ok := connectedSet[p.ID]; ok {
			appendProvider(p)
		}
	}

	for _, p := range providers {
		appendProvider(p)
	}

	return ordered
}
