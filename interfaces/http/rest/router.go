package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"relmap-backend/interfaces/http/rest/handlers"
	"relmap-backend/interfaces/http/rest/middleware"
	"relmap-backend/pkg/common"
)

// RouterConfig holds the settings the router reads
type RouterConfig struct {
	AllowedOrigins []string
	Version        string
}

// Router creates and configures the HTTP router
type Router struct {
	cfg        RouterConfig
	sessions   *handlers.SessionHandler
	characters *handlers.CharacterHandler
	relations  *handlers.RelationHandler
	sheets     *handlers.SheetHandler
	groups     *handlers.GroupHandler
	metrics    http.Handler
	observer   middleware.HTTPObserver
	logger     *zap.Logger
}

// NewRouter creates a new router instance. metrics and observer may be nil
// when metrics are disabled.
func NewRouter(
	cfg RouterConfig,
	sessions *handlers.SessionHandler,
	characters *handlers.CharacterHandler,
	relations *handlers.RelationHandler,
	sheets *handlers.SheetHandler,
	groups *handlers.GroupHandler,
	metrics http.Handler,
	observer middleware.HTTPObserver,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		sessions:   sessions,
		characters: characters,
		relations:  relations,
		sheets:     sheets,
		groups:     groups,
		metrics:    metrics,
		observer:   observer,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.observer != nil {
		router.Use(middleware.Metrics(rt.observer))
	}

	origins := rt.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/snapshots/validate", rt.sessions.ValidateSnapshot)
		r.Get("/autosaves", rt.sessions.ListAutosaves)
		r.Post("/autosaves/{key}/open", rt.sessions.OpenAutosave)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", rt.sessions.CreateSession)

			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", rt.sessions.GetSession)
				r.Delete("/", rt.sessions.DeleteSession)
				r.Post("/reset", rt.sessions.ResetSession)

				r.Post("/undo", rt.sessions.Undo)
				r.Post("/redo", rt.sessions.Redo)
				r.Get("/history", rt.sessions.GetHistory)

				r.Get("/snapshot", rt.sessions.ExportSnapshot)
				r.Put("/snapshot", rt.sessions.ImportSnapshot)

				r.Route("/tags", func(r chi.Router) {
					r.Put("/", rt.characters.SetTags)
					r.Post("/", rt.characters.AddTag)
					r.Put("/order", rt.characters.ReorderTags)
					r.Patch("/{key}", rt.characters.RenameTag)
					r.Delete("/{key}", rt.characters.DeleteTag)
				})

				r.Route("/characters", func(r chi.Router) {
					r.Get("/", rt.characters.ListCharacters)
					r.Post("/", rt.characters.CreateCharacter)
					r.Get("/{id}", rt.characters.GetCharacter)
					r.Patch("/{id}", rt.characters.UpdateCharacter)
					r.Delete("/{id}", rt.characters.DeleteCharacter)
				})

				r.Route("/relations", func(r chi.Router) {
					r.Get("/", rt.relations.ListRelations)
					r.Post("/", rt.relations.CreateRelation)
					r.Get("/{id}", rt.relations.GetRelation)
					r.Patch("/{id}", rt.relations.UpdateRelation)
					r.Delete("/{id}", rt.relations.DeleteRelation)
				})

				r.Route("/groups", func(r chi.Router) {
					r.Get("/", rt.groups.ListGroups)
					r.Post("/", rt.groups.CreateGroup)
					r.Patch("/{id}", rt.groups.UpdateGroup)
					r.Delete("/{id}", rt.groups.DeleteGroup)
					r.Post("/{id}/members", rt.groups.AddMembers)
					r.Delete("/{id}/members", rt.groups.RemoveMembers)
				})

				r.Route("/sheets", func(r chi.Router) {
					r.Get("/", rt.sheets.ListSheets)
					r.Post("/", rt.sheets.CreateSheet)
					r.Route("/{sheetID}", func(r chi.Router) {
						r.Patch("/", rt.sheets.RenameSheet)
						r.Delete("/", rt.sheets.DeleteSheet)
						r.Put("/visibility", rt.sheets.SetVisibility)
						r.Put("/positions/{id}", rt.sheets.MoveNode)
						r.Post("/layout", rt.sheets.ApplyLayout)
						r.Put("/waypoints/{id}", rt.sheets.SetWaypoints)
					})
				})
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": rt.cfg.Version,
	})
}
