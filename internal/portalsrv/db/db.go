// Package db exposes the warehouse store behind one interface so handlers
// can be wired against fakes in tests.
package db

import (
	"context"
	"database/sql"

	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/dashdocs"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/postgresql"
	"github.com/worlddata/portalsrv/internal/portalsrv/pesquisas"
	"github.com/worlddata/portalsrv/internal/portalsrv/search"
	"github.com/worlddata/portalsrv/internal/portalsrv/telemetry"
)

// Store is everything the portal reads and writes in the warehouse. It
// aggregates the per-service store interfaces with the catalog and research
// CRUD operations.
type Store interface {
	ListItens(ctx context.Context, tipo string) ([]models.CatalogItem, apperrors.Error)
	GetItem(ctx context.Context, id string) (*models.CatalogItem, apperrors.Error)
	CreateItem(ctx context.Context, item *models.CatalogItem) apperrors.Error
	UpdateItem(ctx context.Context, item *models.CatalogItem) apperrors.Error
	DeleteItem(ctx context.Context, id, tipo string) apperrors.Error

	ListPesquisas(ctx context.Context) ([]models.Pesquisa, apperrors.Error)
	GetPesquisa(ctx context.Context, id string) (*models.Pesquisa, apperrors.Error)
	CreatePesquisa(ctx context.Context, entry *models.Pesquisa) apperrors.Error
	UpdatePesquisa(ctx context.Context, entry *models.Pesquisa) apperrors.Error
	DeletePesquisa(ctx context.Context, id string) apperrors.Error

	dashdocs.Store
	pesquisas.Store
	search.Store
	telemetry.Store
}

// New wraps the warehouse pool in a Store.
func New(pool *sql.DB) Store {
	return postgresql.New(pool)
}
