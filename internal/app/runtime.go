package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/tradedesk-client/internal/config"
	"github.com/samvad-hq/tradedesk-client/internal/logger"
	"github.com/samvad-hq/tradedesk-client/internal/storage"
	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
	"github.com/samvad-hq/tradedesk-client/pkg/publishers"
)

// Runtime owns the API client and the resources it depends on: the session
// store that supplies bearer tokens and the publishers that receive
// mutation events.
type Runtime struct {
	cfg    *config.Config
	client *apiclient.Client
	store  storage.Store
	fanout *publishers.Fanout
	log    logger.Logger
}

// NewRuntime builds a runtime from config.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore(cfg.SessionStoreType, cfg.SessionPath, storage.Options{
		TokenTTL:        cfg.SessionTTL,
		CleanupInterval: cfg.SessionCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	log.InfoObj("session store initialized", "storage_config", map[string]any{
		"type":                     cfg.SessionStoreType,
		"path":                     cfg.SessionPath,
		"profile":                  cfg.SessionProfile,
		"token_ttl_seconds":        int(cfg.SessionTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.SessionCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := []apiclient.Option{
		apiclient.WithLogger(log),
		apiclient.WithTokenSource(storage.TokenSource(store, cfg.SessionProfile)),
	}
	if fanout.Size() > 0 {
		opts = append(opts, apiclient.WithMutationNotifier(publishers.NewNotifier(cfg.ClientID, fanout, log)))
	}

	client, err := apiclient.New(cfg.ClientConfig(), opts...)
	if err != nil {
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	log.InfoObj("api client initialized", "client_config", map[string]any{
		"base_url":          cfg.APIBaseURL,
		"timeout_ms":        cfg.APITimeout.Milliseconds(),
		"cache_enabled":     cfg.CacheEnabled,
		"cache_ttl_ms":      cfg.CacheTTL.Milliseconds(),
		"min_round_trip_ms": cfg.MinRoundTrip.Milliseconds(),
		"invalidation":      string(cfg.Invalidation),
	})

	return &Runtime{
		cfg:    cfg,
		client: client,
		store:  store,
		fanout: fanout,
		log:    log,
	}, nil
}

// buildFanout loads the optional publishers file.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Client returns the API client.
func (r *Runtime) Client() *apiclient.Client { return r.client }

// Close releases the publishers and the session store.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session store: %w", err))
	}
	return errors.Join(errs...)
}

// Janitor returns a cache janitor for the runtime's client.
func (r *Runtime) Janitor() *Janitor {
	return NewJanitor(r.client, r.cfg.JanitorInterval, r.log)
}
