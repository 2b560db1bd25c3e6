package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/hayasaka/p-tavern/internal/analysis/personatext"
	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
	"github.com/hayasaka/p-tavern/pkg/utils"
)

// Handler manages streaming persona replies via Server-Sent Events.
type Handler struct {
	sessions *chatservice.Service
}

// New creates a new stream handler.
func New(sessions *chatservice.Service) *Handler {
	return &Handler{sessions: sessions}
}

// StreamResponse represents a streaming response chunk.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one user turn: append the turn, ask the
// conversation, mirror each fragment to the client as it arrives, then
// append the full sanitized reply as the model turn.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	conv, err := h.sessions.Conversation(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, err.Error())
		return err
	}
	record, err := h.sessions.Persona(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, err.Error())
		return err
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, chatmodel.RoleUser, userMessage); err != nil {
		h.sendSSEError(w, flusher, err.Error())
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   record.Name,
	})

	final, err := Respond(ctx, conv, userMessage, func(fragment string) {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   fragment,
		})
	})
	if err != nil {
		// No retry: this turn is over, the next attempt is the user's.
		h.sendSSEError(w, flusher, fmt.Sprintf("generation failed: %v", err))
		return err
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, chatmodel.RoleModel, final); err != nil {
		log.Printf("[stream] failed to save model turn: %v", err)
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   final,
	})
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s persona=%q", sessionID, record.Name)
	return nil
}

// Respond asks the conversation for one reply, invoking onFragment for
// each streamed fragment, and returns the sanitized full text. Plain
// (non-streaming) replies surface as a single fragment.
func Respond(ctx context.Context, conv chatmodel.Conversation, userMessage string, onFragment func(string)) (string, error) {
	reply, err := conv.Ask(ctx, userMessage)
	if err != nil {
		return "", err
	}

	var text string
	switch reply.Kind {
	case chatmodel.ReplyStream:
		text, err = chatmodel.Drain(reply.Stream, onFragment)
		if err != nil {
			return "", err
		}
	default:
		text = reply.Text
		if onFragment != nil && text != "" {
			onFragment(text)
		}
	}

	return personatext.Sanitize(text), nil
}

// sendSSE sends a Server-Sent Event.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("failed to marshal SSE response: %v", err)
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// sendSSEError sends an error via Server-Sent Events.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
