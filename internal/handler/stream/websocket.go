package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
)

// WebSocketHandler WebSocket聊天处理器
type WebSocketHandler struct {
	sessions *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(sessions *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// ChatMessage 聊天消息
type ChatMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", sessionID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		var inbound inboundMessage
		if err := json.Unmarshal(payload, &inbound); err != nil {
			h.send(conn, sessionID, "error", map[string]string{"error": "invalid message"})
			continue
		}

		switch inbound.Type {
		case "chat":
			var msg ChatMessage
			if err := json.Unmarshal(inbound.Data, &msg); err != nil || msg.Text == "" {
				h.send(conn, sessionID, "error", map[string]string{"error": "text is required"})
				continue
			}
			h.handleChat(r, conn, sessionID, msg.Text)
		case "ping":
			h.send(conn, sessionID, "pong", nil)
		default:
			h.send(conn, sessionID, "error", map[string]string{"error": "unknown message type"})
		}
	}
}

// handleChat runs one user turn over the socket, mirroring each reply
// fragment as a delta message.
func (h *WebSocketHandler) handleChat(r *http.Request, conn *websocket.Conn, sessionID, text string) {
	ctx := r.Context()

	conv, err := h.sessions.Conversation(ctx, sessionID)
	if err != nil {
		h.send(conn, sessionID, "error", map[string]string{"error": err.Error()})
		return
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, chatmodel.RoleUser, text); err != nil {
		h.send(conn, sessionID, "error", map[string]string{"error": err.Error()})
		return
	}

	final, err := Respond(ctx, conv, text, func(fragment string) {
		h.send(conn, sessionID, "delta", map[string]string{"content": fragment})
	})
	if err != nil {
		h.send(conn, sessionID, "error", map[string]string{"error": err.Error()})
		return
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, chatmodel.RoleModel, final); err != nil {
		log.Printf("[ws] failed to save model turn: %v", err)
	}

	h.send(conn, sessionID, "message", map[string]string{"content": final})
}

func (h *WebSocketHandler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	out := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(out); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}
