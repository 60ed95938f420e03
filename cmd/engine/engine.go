package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"leadgenius-engine/internal/assistant"
	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/llm"
	"leadgenius-engine/internal/logging"
	"leadgenius-engine/internal/metrics"
	"leadgenius-engine/internal/scout"
	"leadgenius-engine/internal/secrets"
	"leadgenius-engine/internal/store"
)

const lockFile = "engine.lock"

var errLocked = errors.New("another engine is using this data directory")

// engine is everything one process builds over a data directory.
type engine struct {
	cfg     *config.Holder
	lock    *flock.Flock
	store   *store.Store
	repo    *leads.Repository
	hub     *events.Hub
	keys    *secrets.APIKeys
	llm     *llm.Client
	scout   *scout.Pipeline
	bridge  *assistant.Bridge
	chat    *assistant.Assistant
	metrics *metrics.Metrics
	log     *zap.Logger
}

// openEngine loads config, takes the data dir lock and opens the store.
func openEngine(ctx context.Context) (*engine, error) {
	cfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("config bootstrap failed: %w", err)
	}
	raw, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", cfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(raw)
	if !vr.OK() {
		return nil, fmt.Errorf("invalid config %s: %v", cfgPath, vr.Errors)
	}
	for _, w := range vr.Warnings {
		logger.Warn("config warning", zap.String("warning", w))
	}
	if !logLevelSet {
		logging.SetLevel(level, cfg.App.LogLevel)
	}

	lock := flock.New(filepath.Join(dataDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", errLocked, dataDir)
	}

	e := &engine{
		cfg:     config.NewHolder(cfgPath, cfg),
		lock:    lock,
		hub:     events.NewHub(),
		keys:    secrets.NewAPIKeys(cfg.AI.APIKeyEnv),
		metrics: metrics.New(),
		log:     logger,
	}

	slot, err := store.NewOSSlot(config.Resolve(dataDir, cfg.Storage.SlotDir, "slot"))
	if err != nil {
		e.close()
		return nil, err
	}
	e.store, err = store.Open(ctx, store.Options{
		WorkDir: config.Resolve(dataDir, cfg.Storage.WorkDir, "work"),
		Slot:    slot,
		SlotKey: cfg.Storage.SlotKey,
		Logger:  logger.Named("store"),
		Metrics: e.metrics,
	})
	if err != nil {
		e.close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.repo = leads.NewRepository(e.store, logger.Named("leads"))

	e.llm = llm.New(llm.Config{
		Key: e.keys.Get,
		Models: llm.Models{
			Discovery: cfg.AI.DiscoveryModel,
			Structure: cfg.AI.StructureModel,
			Audit:     cfg.AI.AuditModel,
			Chat:      cfg.AI.ChatModel,
		},
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Logger:  logger.Named("llm"),
	})

	var prober scout.WebsiteProber
	if cfg.Probe.Enabled {
		prober = scout.NewProber(time.Duration(cfg.Probe.TimeoutSeconds) * time.Second)
	}
	e.scout = scout.New(e.llm, scout.Options{
		Concurrency:       cfg.AI.AuditConcurrency,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Prober:            prober,
		Sink:              hubSink{repo: e.repo, hub: e.hub},
		Logger:            logger.Named("scout"),
		Metrics:           e.metrics,
	})

	e.bridge = assistant.NewBridge(e.repo, func(ctx context.Context, id string) {
		e.hub.Emit("", events.LeadUpdated, events.LeadChange{ID: id, Source: "assistant"})
	}, logger.Named("tools"), e.metrics)
	e.chat = assistant.New(e.llm, e.bridge, assistant.Options{
		SystemInstruction: cfg.Assistant.SystemInstruction,
		Logger:            logger.Named("assistant"),
		Metrics:           e.metrics,
	})
	return e, nil
}

func (e *engine) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("store close failed", zap.Error(err))
		}
	}
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
}

// hubSink stores scouted leads and tells the dashboard about each one.
type hubSink struct {
	repo *leads.Repository
	hub  *events.Hub
}

func (s hubSink) Upsert(ctx context.Context, lead domain.Lead, savedOverride *bool) error {
	if err := s.repo.Upsert(ctx, lead, savedOverride); err != nil {
		return err
	}
	s.hub.Emit("", events.LeadUpserted, events.LeadChange{ID: lead.ID, Source: "scout"})
	return nil
}
