package httpapi

import (
	"context"

	"go.uber.org/zap"

	"leadgenius-engine/internal/assistant"
	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/metrics"
	"leadgenius-engine/internal/scout"
	"leadgenius-engine/internal/secrets"
)

// LeadStore is what the lead handlers need from leads.Repository.
type LeadStore interface {
	GetAll(ctx context.Context) ([]domain.Lead, error)
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	ToggleSave(ctx context.Context, id string) (bool, error)
	UpdateIntelligence(ctx context.Context, id string, patch domain.IntelligencePatch) error
}

type Snapshotter interface {
	ExportSnapshot(ctx context.Context) ([]byte, error)
	ImportSnapshot(ctx context.Context, blob []byte) error
}

type Scouter interface {
	Scout(ctx context.Context, params domain.SearchParams) ([]domain.Lead, error)
	AnalyzeCompetitor(ctx context.Context, lead domain.Lead, competitorURL string) (domain.CompetitorReport, error)
}

type Chatter interface {
	Chat(ctx context.Context, history []domain.ChatMessage, message string) assistant.Turn
}

// KeyStore is the AI key capability (secrets.APIKeys).
type KeyStore interface {
	Lookup() (string, secrets.Source, error)
	Set(key string) error
	Delete() error
}

type Deps struct {
	Leads     LeadStore
	Snapshots Snapshotter
	Scout     Scouter
	Assistant Chatter
	Keys      KeyStore

	Hub         *events.Hub
	Config      *config.Holder
	ScoutStatus *scout.StatusTracker
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	// Greeting is the assistant's opening line returned by GET /chat.
	Greeting string
	// OnConfigSaved runs after PUT /config is written and reloaded.
	OnConfigSaved func(config.Config)
}
