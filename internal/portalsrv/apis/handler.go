// Package apis implements the HTTP handlers of the portal service.
package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/auth"
	"github.com/worlddata/portalsrv/internal/portalsrv/dashdocs"
	"github.com/worlddata/portalsrv/internal/portalsrv/db"
	"github.com/worlddata/portalsrv/internal/portalsrv/pesquisas"
	"github.com/worlddata/portalsrv/internal/portalsrv/search"
	"github.com/worlddata/portalsrv/internal/portalsrv/telemetry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler carries the store and the services the routes dispatch to. Tests
// construct it with a fake store.
type Handler struct {
	store            db.Store
	dashImporter     *dashdocs.Importer
	researchImporter *pesquisas.Importer
	searchSvc        *search.Service
	telemetrySvc     *telemetry.Service
}

func NewHandler(store db.Store) *Handler {
	return &Handler{
		store:            store,
		dashImporter:     dashdocs.NewImporter(store),
		researchImporter: pesquisas.NewImporter(store),
		searchSvc:        search.NewService(store),
		telemetrySvc:     telemetry.NewService(store),
	}
}

func (h *Handler) publicHandlers() []httpx.ResponseHandlerParam {
	return []httpx.ResponseHandlerParam{
		{
			Method:  http.MethodGet,
			Path:    "/itens",
			Handler: h.listItens,
		},
		{
			Method:  http.MethodGet,
			Path:    "/itens/{itemId}",
			Handler: h.getItem,
		},
		{
			Method:  http.MethodGet,
			Path:    "/projetos",
			Handler: h.listByTipo("projeto"),
		},
		{
			Method:  http.MethodGet,
			Path:    "/dashboards",
			Handler: h.listByTipo("dashboard"),
		},
		{
			Method:  http.MethodGet,
			Path:    "/docs",
			Handler: h.listByTipo("documentacao"),
		},
		{
			Method:  http.MethodGet,
			Path:    "/ferramentas",
			Handler: h.listByTipo("ferramenta"),
		},
		{
			Method:  http.MethodGet,
			Path:    "/pesquisas",
			Handler: h.listPesquisas,
		},
		{
			Method:  http.MethodGet,
			Path:    "/dashboard-docs/{dashboardId}",
			Handler: h.getDashboardDocs,
		},
		{
			Method:  http.MethodGet,
			Path:    "/busca",
			Handler: h.searchCatalog,
		},
	}
}

func (h *Handler) adminHandlers() []httpx.ResponseHandlerParam {
	return []httpx.ResponseHandlerParam{
		{
			Method:  http.MethodPost,
			Path:    "/itens",
			Handler: h.createItem,
		},
		{
			Method:  http.MethodPut,
			Path:    "/itens/{itemId}",
			Handler: h.updateItem,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/itens/{itemId}",
			Handler: h.deleteItem,
		},
		{
			Method:  http.MethodPost,
			Path:    "/pesquisas",
			Handler: h.createPesquisa,
		},
		{
			Method:  http.MethodPut,
			Path:    "/pesquisas/{pesquisaId}",
			Handler: h.updatePesquisa,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/pesquisas/{pesquisaId}",
			Handler: h.deletePesquisa,
		},
		{
			Method:  http.MethodPost,
			Path:    "/pesquisas/import",
			Handler: h.importPesquisas,
		},
		{
			Method:  http.MethodPost,
			Path:    "/dashboard-docs/normalize",
			Handler: h.normalizeDashboardDocs,
		},
		{
			Method:  http.MethodPost,
			Path:    "/dashboard-docs/import",
			Handler: h.importDashboardDocs,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/dashboard-docs/{dashboardId}",
			Handler: h.deleteDashboardDocs,
		},
		{
			Method:  http.MethodGet,
			Path:    "/telemetria/overview",
			Handler: h.telemetryOverview,
		},
	}
}

// Router registers the public routes.
func (h *Handler) Router(r chi.Router) {
	for _, handler := range h.publicHandlers() {
		r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
	}
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Post("/telemetria/event", h.recordEvent)
}

// AdminRouter registers the session-guarded admin routes.
func (h *Handler) AdminRouter(r chi.Router) {
	r.Use(auth.AdminOnly)
	for _, handler := range h.adminHandlers() {
		r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
	}
}
