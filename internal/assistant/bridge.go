package assistant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/metrics"
)

// LeadStore is the slice of the lead repository the tools need.
type LeadStore interface {
	GetAll(ctx context.Context) ([]domain.Lead, error)
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	UpdateIntelligence(ctx context.Context, id string, patch domain.IntelligencePatch) error
}

// ChangeFunc is told which lead a tool changed so the presentation layer can refresh.
type ChangeFunc func(ctx context.Context, leadID string)

type Bridge struct {
	repo     LeadStore
	onChange ChangeFunc
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewBridge(repo LeadStore, onChange ChangeFunc, log *zap.Logger, m *metrics.Metrics) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{repo: repo, onChange: onChange, log: log, metrics: m}
}

func (b *Bridge) ListTools() []ToolDefinition {
	return Definitions()
}

// Execute runs one tool call. The returned result is always addressed to
// call.ID and is safe to forward to the model, even when err is non-nil:
// repository failures become a readable error message in the result.
// Unknown tool names are rejected.
func (b *Bridge) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	if !knownTool(call.Name) {
		b.metrics.ObserveToolCall(call.Name, "rejected")
		b.log.Warn("rejected unknown tool", zap.String("tool", call.Name), zap.String("call_id", call.ID))
		return ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}

	var (
		content map[string]any
		err     error
	)
	switch call.Name {
	case ToolGetLeads:
		content, err = b.getLeads(ctx, call.Args)
	case ToolGetLeadDetails:
		content, err = b.getLeadDetails(ctx, call.Args)
	case ToolUpdateLeadIntelligence:
		content, err = b.updateIntelligence(ctx, call.Args)
	}

	res := ToolResult{CallID: call.ID, Name: call.Name, Content: content}
	if err != nil {
		b.metrics.ObserveToolCall(call.Name, "error")
		b.log.Warn("tool failed", zap.String("tool", call.Name), zap.String("call_id", call.ID), zap.Error(err))
		res.Content = nil
		res.Error = fmt.Sprintf("%s failed: %v", call.Name, err)
		return res, err
	}
	b.metrics.ObserveToolCall(call.Name, "ok")
	b.log.Debug("tool executed", zap.String("tool", call.Name), zap.String("call_id", call.ID))
	return res, nil
}

func (b *Bridge) getLeads(ctx context.Context, args map[string]any) (map[string]any, error) {
	all, err := b.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if argBool(args, "filter_saved") {
		all = leads.Filter{SavedOnly: true}.Apply(all)
	}
	return map[string]any{"leads": all, "count": len(all)}, nil
}

func (b *Bridge) getLeadDetails(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := requiredID(args)
	if err != nil {
		return nil, err
	}
	l, err := b.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return notFound(id), nil
	}
	return map[string]any{"found": true, "lead": *l}, nil
}

func (b *Bridge) updateIntelligence(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := requiredID(args)
	if err != nil {
		return nil, err
	}

	var patch domain.IntelligencePatch
	if v, ok := argString(args, "notes"); ok {
		patch.Notes = &v
	}
	if v, ok := argString(args, "proposal"); ok {
		patch.Proposal = &v
	}
	if v, ok := argString(args, "pitchAngle"); ok {
		patch.PitchAngle = &v
	} else if v, ok := argString(args, "pitch_angle"); ok {
		patch.PitchAngle = &v
	}

	err = b.repo.UpdateIntelligence(ctx, id, patch)
	if errors.Is(err, leads.ErrNotFound) {
		return notFound(id), nil
	}
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return map[string]any{"success": true, "id": id, "updated": false}, nil
	}

	if b.onChange != nil {
		b.onChange(ctx, id)
	}
	return map[string]any{"success": true, "id": id, "updated": true}, nil
}

func notFound(id string) map[string]any {
	return map[string]any{"found": false, "id": id, "message": "no lead with this id"}
}
