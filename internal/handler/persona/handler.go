package persona

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
	personaservice "github.com/hayasaka/p-tavern/internal/service/persona"
	"github.com/hayasaka/p-tavern/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	pipeline *personaservice.Service
	sessions *chatservice.Service
}

// New 创建persona处理器
func New(pipeline *personaservice.Service, sessions *chatservice.Service) *Handler {
	return &Handler{pipeline: pipeline, sessions: sessions}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/{sessionID}/persona", h.handleCreatePersona)
	r.Get("/session/{sessionID}/persona", h.handleGetPersona)
	r.Get("/session/{sessionID}/portrait", h.handleGetPortrait)
}

// handleCreatePersona runs the creation pipeline. The action is gated:
// without an uploaded asset it cannot fire, and it fires at most once per
// asset lifecycle.
func (h *Handler) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := h.pipeline.Create(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chatservice.ErrAssetRequired):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chatservice.ErrPersonaExists):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			// Transient model-service failure: state is unchanged and the
			// user may retry.
			utils.RespondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	transcript, err := h.sessions.Transcript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"persona":    record,
		"transcript": transcript,
	})
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := h.sessions.Persona(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}

// handleGetPortrait serves the trimmed image for the active persona.
func (h *Handler) handleGetPortrait(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	portrait, err := h.sessions.Portrait(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(portrait) == 0 {
		utils.RespondError(w, http.StatusNotFound, "no portrait for this session")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(portrait)
}
