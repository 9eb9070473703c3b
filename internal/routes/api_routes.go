package routes

import (
	"github.com/go-chi/chi/v5"

	"infinite-experiment/fmsuplink/internal/api"
	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/middleware"
)

// APIHandlers groups what RegisterAPIRoutes mounts
type APIHandlers struct {
	Uplinker          api.Uplinker
	Jobs              api.JobQueue
	History           api.HistoryReader
	NavCache          api.NavCachePurger
	Signer            *common.TokenSigner
	DefaultProcedures bool
}

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, h APIHandlers) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(h.Signer)) // all routes must be authenticated

		v1.Group(func(pilot chi.Router) {
			pilot.Use(middleware.RequireScope(constants.ScopeUplink))

			pilot.Post("/navlog/classify", api.ClassifyHandler(h.Uplinker))
			pilot.Post("/navlog/uplink", api.UplinkDocumentHandler(h.Uplinker))

			pilot.Post("/uplink/{pilot_id}", api.UplinkHandler(h.Uplinker))
			pilot.Post("/uplink/{pilot_id}/jobs", api.EnqueueUplinkHandler(h.Jobs, h.DefaultProcedures))
			pilot.Get("/uplink/{pilot_id}/history", api.UplinkHistoryHandler(h.History))
			pilot.Get("/uplink/jobs/{job_id}", api.GetUplinkJobHandler(h.Jobs))
			pilot.Get("/uplink/history/{id}", api.GetHistoryEntryHandler(h.History))
		})

		v1.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireScope(constants.ScopeAdmin))
			admin.Post("/admin/navdb/purge", api.PurgeNavCacheHandler(h.NavCache))
		})
	})
}
