package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/whats-eat/backend/internal/handler/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/handler/geocode"
	"github.com/zhouzirui/whats-eat/backend/internal/handler/stream"
	"github.com/zhouzirui/whats-eat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/whats-eat/backend/internal/middleware"
	chatService "github.com/zhouzirui/whats-eat/backend/internal/service/chat"
	"github.com/zhouzirui/whats-eat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. geocoder may be nil, in which
// case the geocode endpoint is not registered.
func NewRouter(chatSvc *chatService.Service, geocoder geocode.Geocoder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		// Session lifecycle and turns
		chat.New(chatSvc).RegisterRoutes(api)

		// Snapshot subscribers
		stream.New(chatSvc).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)

		if geocoder != nil {
			geocode.New(geocoder).RegisterRoutes(api)
		}
	})

	return r
}
