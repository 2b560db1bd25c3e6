package upload

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hayasaka/p-tavern/internal/model/asset"
	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
	"github.com/hayasaka/p-tavern/pkg/utils"
)

// Handler 文件上传的HTTP处理器
type Handler struct {
	sessions *chatservice.Service
	maxBytes int64
}

// New 创建上传处理器
func New(sessions *chatservice.Service, maxBytes int64) *Handler {
	return &Handler{sessions: sessions, maxBytes: maxBytes}
}

// RegisterRoutes 注册上传相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/{sessionID}/asset", h.handleUpload)
}

// handleUpload ingests one multipart file, validates its media kind, and
// records it on the session. A changed identity invalidates the persona,
// portrait, conversation, and transcript together.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	// The filename is the asset identity; without one, change detection
	// has nothing to compare.
	if header.Filename == "" {
		utils.RespondError(w, http.StatusBadRequest, "uploaded file needs a filename")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	a, err := asset.New(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, asset.ErrUnsupportedMedia) {
			// Validation failure, surfaced immediately, never ignored.
			utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	changed, err := h.sessions.AttachAsset(r.Context(), sessionID, a)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if changed {
		log.Printf("[upload] session=%s asset changed to %q (%s)", sessionID, a.Identity, a.Kind)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"identity": a.Identity,
		"kind":     a.Kind,
		"changed":  changed,
	})
}
