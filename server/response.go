package server

import (
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/manager"
	"github.com/google/uuid"
)

// The generate endpoint answers in a chat-completion shape so the dashboard
// renders engine replies and interrupt prompts with the same component.

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
	Options      []string          `json:"options,omitempty"`
}

type interruptData struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type completionResponse struct {
	ID             string             `json:"id"`
	Choices        []completionChoice `json:"choices"`
	SessionID      string             `json:"session_id"`
	WorkflowStatus string             `json:"workflow_status"`
	InterruptData  *interruptData     `json:"interrupt_data,omitempty"`
	ResultCount    int                `json:"result_count"`
	Error          string             `json:"error,omitempty"`
}

// completionBody renders a manager response for the dashboard.
func completionBody(resp *manager.GenerateResponse) completionResponse {
	choice := completionChoice{
		Message:      completionMessage{Role: "assistant", Content: resp.Reply},
		FinishReason: finishReason(resp.Status),
	}

	out := completionResponse{
		ID:             "gen-" + uuid.NewString(),
		SessionID:      resp.SessionID,
		WorkflowStatus: string(resp.Status),
		ResultCount:    len(resp.Results),
		Error:          resp.Error,
	}

	if it := resp.Interrupt; it != nil {
		choice.Options = it.Options
		data := map[string]any{
			"type":         string(it.Kind),
			"options":      it.Options,
			"instructions": it.Instructions,
		}
		for k, v := range it.Data {
			data[k] = v
		}
		out.InterruptData = &interruptData{Message: it.Message, Data: data}
	}

	out.Choices = []completionChoice{choice}
	return out
}

// finishReason mirrors the chat-completion convention: a paused workflow is
// still generating, everything else stopped.
func finishReason(status core.Status) string {
	if status == core.StatusAwaitingInput {
		return "interrupt"
	}
	return "stop"
}
