package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Dhvanitmonpara/interview.ai/internal/handler/channel"
	roleHandler "github.com/Dhvanitmonpara/interview.ai/internal/handler/role"
	sessionHandler "github.com/Dhvanitmonpara/interview.ai/internal/handler/session"
	middlewarePkg "github.com/Dhvanitmonpara/interview.ai/internal/middleware"
	"github.com/Dhvanitmonpara/interview.ai/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(channelHandler *channel.Handler, allowedOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigin))

	deps := channelHandler.Dependencies()
	sessions := sessionHandler.New(deps.Registry, deps.Archive, deps.Roles, deps.Connections)
	roles := roleHandler.New(deps.Roles)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondSuccess(w, http.StatusOK, map[string]int{
			"connections": deps.Connections.Len(),
			"sessions":    deps.Registry.Len(),
		}, "ok")
	})

	r.Route("/api/v1", func(api chi.Router) {
		// Websocket event channel
		channelHandler.RegisterRoutes(api)

		// Session data and archive
		sessions.RegisterRoutes(api)

		// Role catalog
		roles.RegisterRoutes(api)
	})

	return r
}
