package llm

import (
	"context"

	"google.golang.org/genai"

	"leadgenius-engine/internal/assistant"
	"leadgenius-engine/internal/domain"
)

var _ assistant.ChatModel = (*Client)(nil)

// Generate sends one chat request with the lead tools declared.
func (c *Client) Generate(ctx context.Context, req assistant.Request) (assistant.Reply, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if decls := functionDeclarations(req.Tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.generate(ctx, c.models.Chat, chatContents(req), cfg)
	if err != nil {
		return assistant.Reply{}, err
	}
	return replyFrom(resp), nil
}

func functionDeclarations(tools []assistant.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.Parameters,
		})
	}
	return out
}

// chatContents lays out the transcript: history, the user's message and, on a
// follow-up, the model's function calls followed by one response per call.
func chatContents(req assistant.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+3)
	for _, m := range req.History {
		if m.Content == "" {
			continue
		}
		role := genai.RoleUser
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	if len(req.Calls) == 0 {
		return contents
	}

	calls := &genai.Content{Role: string(genai.RoleModel)}
	for _, call := range req.Calls {
		calls.Parts = append(calls.Parts, &genai.Part{
			FunctionCall:     &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args},
			ThoughtSignature: call.ThoughtSignature,
		})
	}
	responses := &genai.Content{Role: string(genai.RoleUser)}
	for _, res := range req.Results {
		responses.Parts = append(responses.Parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{ID: res.CallID, Name: res.Name, Response: res.Payload()},
		})
	}
	return append(contents, calls, responses)
}

func replyFrom(resp *genai.GenerateContentResponse) assistant.Reply {
	var r assistant.Reply
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return r
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			r.ToolCalls = append(r.ToolCalls, assistant.ToolCall{
				ID:               p.FunctionCall.ID,
				Name:             p.FunctionCall.Name,
				Args:             p.FunctionCall.Args,
				ThoughtSignature: p.ThoughtSignature,
			})
		case p.Text != "" && !p.Thought:
			r.Text += p.Text
		}
	}
	return r
}
