package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	askHandler "github.com/hayasaka/p-tavern/internal/handler/ask"
	chatHandler "github.com/hayasaka/p-tavern/internal/handler/chat"
	personaHandler "github.com/hayasaka/p-tavern/internal/handler/persona"
	sessionHandler "github.com/hayasaka/p-tavern/internal/handler/session"
	"github.com/hayasaka/p-tavern/internal/handler/stream"
	uploadHandler "github.com/hayasaka/p-tavern/internal/handler/upload"
	middlewarePkg "github.com/hayasaka/p-tavern/internal/middleware"
	chatService "github.com/hayasaka/p-tavern/internal/service/chat"
	personaService "github.com/hayasaka/p-tavern/internal/service/persona"
	"github.com/hayasaka/p-tavern/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *chatService.Service, pipeline *personaService.Service, maxUploadBytes int64) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	streamHandler := stream.New(sessions)
	wsHandler := stream.NewWebSocketHandler(sessions)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.New(sessions).RegisterRoutes(api)
		uploadHandler.New(sessions, maxUploadBytes).RegisterRoutes(api)
		personaHandler.New(pipeline, sessions).RegisterRoutes(api)
		askHandler.New(pipeline).RegisterRoutes(api)
		chatHandler.New(sessions).RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})

		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
