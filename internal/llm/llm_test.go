package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"leadgenius-engine/internal/assistant"
	"leadgenius-engine/internal/domain"
)

func TestChatContentsFollowUp(t *testing.T) {
	req := assistant.Request{
		History: []domain.ChatMessage{
			{Role: domain.RoleAssistant, Content: assistant.DefaultGreeting},
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: ""},
		},
		Message: "what's saved?",
		Calls: []assistant.ToolCall{
			{ID: "c1", Name: assistant.ToolGetLeads, Args: map[string]any{"filter_saved": true}},
			{ID: "c2", Name: assistant.ToolGetLeadDetails, Args: map[string]any{"id": "x"}},
		},
		Results: []assistant.ToolResult{
			{CallID: "c1", Name: assistant.ToolGetLeads, Content: map[string]any{"count": 0}},
			{CallID: "c2", Name: assistant.ToolGetLeadDetails, Error: "boom"},
		},
	}

	got := chatContents(req)
	require.Len(t, got, 5)
	assert.Equal(t, string(genai.RoleModel), got[0].Role)
	assert.Equal(t, string(genai.RoleUser), got[1].Role)
	assert.Equal(t, "what's saved?", got[2].Parts[0].Text)

	calls, responses := got[3], got[4]
	assert.Equal(t, string(genai.RoleModel), calls.Role)
	require.Len(t, calls.Parts, 2)
	assert.Equal(t, "c2", calls.Parts[1].FunctionCall.ID)

	require.Len(t, responses.Parts, 2)
	assert.Equal(t, "c1", responses.Parts[0].FunctionResponse.ID)
	assert.Equal(t, map[string]any{"count": 0}, responses.Parts[0].FunctionResponse.Response)
	assert.Equal(t, map[string]any{"error": "boom"}, responses.Parts[1].FunctionResponse.Response)
}

func TestChatContentsFirstRequest(t *testing.T) {
	got := chatContents(assistant.Request{Message: "hello"})
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Parts[0].Text)
}

func TestReplyFrom(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "Let me check. "},
			{FunctionCall: &genai.FunctionCall{ID: "f1", Name: "get_leads", Args: map[string]any{}}, ThoughtSignature: []byte("sig")},
		}},
	}}}

	r := replyFrom(resp)
	assert.Equal(t, "Let me check. ", r.Text)
	require.Len(t, r.ToolCalls, 1)
	assert.Equal(t, "f1", r.ToolCalls[0].ID)
	assert.Equal(t, []byte("sig"), r.ToolCalls[0].ThoughtSignature)

	assert.Equal(t, assistant.Reply{}, replyFrom(nil))
	assert.Equal(t, assistant.Reply{}, replyFrom(&genai.GenerateContentResponse{}))
}

func TestFunctionDeclarationsCoverTools(t *testing.T) {
	decls := functionDeclarations(assistant.Definitions())
	require.Len(t, decls, 3)
	assert.Equal(t, assistant.ToolUpdateLeadIntelligence, decls[2].Name)
	assert.NotNil(t, decls[2].ParametersJsonSchema)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		auth  bool
		trans bool
	}{
		{"401", genai.APIError{Code: 401, Message: "unauthenticated"}, true, false},
		{"403 wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 403, Message: "permission denied"}), true, false},
		{"bad key", genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}, true, false},
		{"429", genai.APIError{Code: 429, Message: "quota"}, false, true},
		{"500", genai.APIError{Code: 500, Message: "internal"}, false, true},
		{"network", errors.New("dial tcp: i/o timeout"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.auth, domain.IsUnauthorized(err))
			assert.Equal(t, tt.trans, domain.IsTransient(err))
		})
	}
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)
	assert.Nil(t, classify(nil))
}

func TestMissingKeyIsUnauthorized(t *testing.T) {
	for _, key := range []KeyFunc{
		nil,
		func() (string, error) { return "  ", nil },
		func() (string, error) { return "", errors.New("keychain locked") },
	} {
		c := New(Config{Key: key})
		_, err := c.Discover(context.Background(), "pizza", "Brooklyn", 3, 4.7)
		assert.True(t, domain.IsUnauthorized(err))

		_, err = c.Generate(context.Background(), assistant.Request{Message: "hi"})
		assert.True(t, domain.IsUnauthorized(err))
	}
}

func TestDecodeAudit(t *testing.T) {
	a, err := decodeAudit("```json\n{\"pitchAngle\":\"Sell booking\",\"hasChatbot\":false}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Sell booking", a.PitchAngle)
	require.NotNil(t, a.HasChatbot)
	assert.False(t, *a.HasChatbot)
	assert.Nil(t, a.HasOnlineBooking)

	a, err = decodeAudit("")
	require.NoError(t, err)
	assert.Empty(t, a.MarketGaps)

	_, err = decodeAudit("not json")
	assert.True(t, domain.IsTransient(err))
}

func TestDecodeBusinesses(t *testing.T) {
	bs, err := decodeBusinesses(`[{"name":"Joe's Pizza","address":"12 Main St","rating":4.2,"latitude":40.7,"longitude":-74}]`)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, 4.2, bs[0].Rating)

	bs, err = decodeBusinesses("  ")
	require.NoError(t, err)
	assert.Empty(t, bs)
}

func TestDiscoveryPromptUsesRange(t *testing.T) {
	assert.Contains(t, discoveryPrompt("pizza", "Brooklyn", 3, 4.7), "ratings between 3.0 and 4.7")
}
