package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	commonmiddleware "github.com/worlddata/portalsrv/internal/common/middleware"
	"github.com/worlddata/portalsrv/internal/portalsrv/apis"
	"github.com/worlddata/portalsrv/internal/portalsrv/config"
	"github.com/worlddata/portalsrv/internal/portalsrv/db"
)

type PortalServer struct {
	Router *chi.Mux
	store  db.Store
}

func CreateNewServer(store db.Store) (*PortalServer, error) {
	s := &PortalServer{
		Router: chi.NewRouter(),
		store:  store,
	}
	return s, nil
}

func (s *PortalServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   config.Config().CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	handler := apis.NewHandler(s.store)
	s.Router.Route("/", func(r chi.Router) {
		handler.Router(r)
		r.Route("/admin", handler.AdminRouter)
		r.Get("/version", s.getVersion)
	})
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *PortalServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Portal Data Server: 0.1.0",
		ApiVersion:    "v1",
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}
