package ask

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
	personaservice "github.com/hayasaka/p-tavern/internal/service/persona"
	"github.com/hayasaka/p-tavern/pkg/utils"
)

// Handler 图像直接问答的HTTP处理器
type Handler struct {
	pipeline *personaservice.Service
}

// New 创建问答处理器
func New(pipeline *personaservice.Service) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes 注册问答相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/{sessionID}/ask", h.handleAsk)
}

type askRequest struct {
	Question string `json:"question"`
}

// handleAsk answers one question about the uploaded image in a single
// model call, outside any persona or transcript.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.pipeline.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chatservice.ErrAssetRequired),
			errors.Is(err, personaservice.ErrImageRequired):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
