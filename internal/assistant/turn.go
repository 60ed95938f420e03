package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/metrics"
)

// Messages shown to the user when a turn cannot produce a model reply.
const (
	ErrorReply        = "Error connecting to strategic network. Check your link."
	UnauthorizedReply = "Strategic network access is not authorized. Reconnect your API key."
	EmptyReply        = "Done. Let me know if you want to dig into any of these leads."
)

const (
	DefaultSystemInstruction = "You are the LeadGenius AI assistant, part of a high-tech Tactical Command Center. " +
		"You help users understand market opportunities, explain business gaps, and refine sales strategies for local lead generation. " +
		"Use the lead tools to look up the user's scouted leads and to record notes, proposals and pitch angles when asked."
	DefaultGreeting = "Tactical strategist online. How can I help you refine your scout results or develop a pitch strategy?"
)

type State int

const (
	AwaitingModelResponse State = iota
	ExecutingTools
	AwaitingFollowupResponse
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModelResponse:
		return "awaiting_model_response"
	case ExecutingTools:
		return "executing_tools"
	case AwaitingFollowupResponse:
		return "awaiting_followup_response"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Request is one call to the model. The follow-up request repeats the first
// one and adds the model's tool calls together with their results.
type Request struct {
	SystemInstruction string
	History           []domain.ChatMessage
	Message           string
	Tools             []ToolDefinition

	Calls   []ToolCall
	Results []ToolResult
}

// Reply is either text or a set of tool calls (rarely both).
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

type ChatModel interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}

// Turn is the outcome of one user message. It always ends in Done with a
// Reply the user can read.
type Turn struct {
	State        State        `json:"-"`
	Reply        string       `json:"reply"`
	ToolResults  []ToolResult `json:"toolResults,omitempty"`
	Changed      bool         `json:"changed"`
	Unauthorized bool         `json:"unauthorized,omitempty"`
	Err          error        `json:"-"`
}

type Options struct {
	SystemInstruction string
	Logger            *zap.Logger
	Metrics           *metrics.Metrics
}

type Assistant struct {
	model   ChatModel
	bridge  *Bridge
	system  string
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(model ChatModel, bridge *Bridge, opts Options) *Assistant {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.SystemInstruction) == "" {
		opts.SystemInstruction = DefaultSystemInstruction
	}
	return &Assistant{
		model:   model,
		bridge:  bridge,
		system:  opts.SystemInstruction,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Chat runs one conversational turn. Tool calls are executed one at a time in
// the order the model sent them, and all of their results go back in a single
// follow-up request.
func (a *Assistant) Chat(ctx context.Context, history []domain.ChatMessage, message string) Turn {
	t := Turn{State: AwaitingModelResponse}
	req := Request{
		SystemInstruction: a.system,
		History:           history,
		Message:           message,
		Tools:             a.bridge.ListTools(),
	}

	reply, err := a.model.Generate(ctx, req)
	if err != nil {
		return a.fail(t, err)
	}
	if len(reply.ToolCalls) == 0 {
		return a.finish(t, reply.Text, "text")
	}

	t.State = ExecutingTools
	t.ToolResults = make([]ToolResult, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		res, err := a.bridge.Execute(ctx, call)
		if err == nil && call.Name == ToolUpdateLeadIntelligence && res.Content["updated"] == true {
			t.Changed = true
		}
		t.ToolResults = append(t.ToolResults, res)
	}

	t.State = AwaitingFollowupResponse
	req.Calls = reply.ToolCalls
	req.Results = t.ToolResults
	followup, err := a.model.Generate(ctx, req)
	if err != nil {
		return a.fail(t, err)
	}
	if len(followup.ToolCalls) > 0 {
		a.log.Debug("ignoring tool calls in follow-up", zap.Int("calls", len(followup.ToolCalls)))
	}
	return a.finish(t, followup.Text, "tools")
}

func (a *Assistant) finish(t Turn, text, outcome string) Turn {
	t.State = Done
	t.Reply = strings.TrimSpace(text)
	if t.Reply == "" {
		t.Reply = EmptyReply
	}
	a.metrics.ObserveTurn(outcome)
	return t
}

func (a *Assistant) fail(t Turn, err error) Turn {
	a.log.Warn("chat turn failed", zap.Stringer("state", t.State), zap.Error(err))
	t.State = Done
	t.Err = err
	t.Reply = ErrorReply
	if domain.IsUnauthorized(err) {
		t.Unauthorized = true
		t.Reply = UnauthorizedReply
	}
	a.metrics.ObserveTurn("error")
	return t
}
