package postgresql

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/dberror"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
)

const itemColumns = `id, tipo, nome, descricao, link, area, status, proxima_atualizacao,
	tecnologias, data_inicio, ultima_atualizacao, responsavel, cliente, observacao, criado_em`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := row.Scan(
		&item.ID, &item.Tipo, &item.Nome, &item.Descricao, &item.Link,
		&item.Area, &item.Status, &item.ProximaAtualizacao,
		pq.Array(&item.Tecnologias), &item.DataInicio, &item.UltimaAtualizacao,
		&item.Responsavel, &item.Cliente, &item.Observacao, &item.CriadoEm,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItens returns all catalog items, filtered by tipo when it is non-empty.
func (ws *WarehouseStore) ListItens(ctx context.Context, tipo string) ([]models.CatalogItem, apperrors.Error) {
	query := `SELECT ` + itemColumns + ` FROM itens_portal`
	args := []any{}
	if tipo != "" {
		query += ` WHERE tipo = $1`
		args = append(args, tipo)
	}
	query += ` ORDER BY nome ASC`

	rows, errDb := ws.db.QueryContext(ctx, query, args...)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("tipo", tipo).Msg("failed to list catalog items")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		item, errDb := scanItem(rows)
		if errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Msg("failed to scan catalog item")
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		items = append(items, *item)
	}
	if errDb := rows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	return items, nil
}

// GetItem retrieves one catalog item by id.
func (ws *WarehouseStore) GetItem(ctx context.Context, id string) (*models.CatalogItem, apperrors.Error) {
	query := `SELECT ` + itemColumns + ` FROM itens_portal WHERE id = $1`
	item, errDb := scanItem(ws.db.QueryRowContext(ctx, query, id))
	if errDb != nil {
		if errDb == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("item nao encontrado")
		}
		log.Ctx(ctx).Error().Err(errDb).Str("id", id).Msg("failed to get catalog item")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	return item, nil
}

// CreateItem inserts a new catalog item. The caller assigns the id.
func (ws *WarehouseStore) CreateItem(ctx context.Context, item *models.CatalogItem) apperrors.Error {
	query := `
		INSERT INTO itens_portal (id, tipo, nome, descricao, link, area, status,
			proxima_atualizacao, tecnologias, data_inicio, ultima_atualizacao,
			responsavel, cliente, observacao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
		RETURNING id;
	`
	var insertedID string
	errDb := ws.db.QueryRowContext(ctx, query,
		item.ID, item.Tipo, item.Nome, item.Descricao, item.Link, item.Area,
		item.Status, item.ProximaAtualizacao, pq.Array(item.Tecnologias),
		item.DataInicio, item.Responsavel, item.Cliente, item.Observacao,
	).Scan(&insertedID)
	if errDb != nil {
		if errDb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("id", item.ID).Msg("catalog item already exists")
			return dberror.ErrAlreadyExists.Msg("item ja existe")
		}
		log.Ctx(ctx).Error().Err(errDb).Str("id", item.ID).Msg("failed to insert catalog item")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// UpdateItem overwrites every mutable field of the item identified by id and
// tipo and refreshes ultima_atualizacao.
func (ws *WarehouseStore) UpdateItem(ctx context.Context, item *models.CatalogItem) apperrors.Error {
	query := `
		UPDATE itens_portal
		SET nome = $3, descricao = $4, link = $5, area = $6, status = $7,
			proxima_atualizacao = $8, tecnologias = $9, data_inicio = $10,
			responsavel = $11, cliente = $12, observacao = $13,
			ultima_atualizacao = NOW()
		WHERE id = $1 AND tipo = $2;
	`
	result, errDb := ws.db.ExecContext(ctx, query,
		item.ID, item.Tipo, item.Nome, item.Descricao, item.Link, item.Area,
		item.Status, item.ProximaAtualizacao, pq.Array(item.Tecnologias),
		item.DataInicio, item.Responsavel, item.Cliente, item.Observacao,
	)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("id", item.ID).Msg("failed to update catalog item")
		return dberror.ErrDatabase.Err(errDb)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return dberror.ErrNotFound.Msg("item nao encontrado")
	}
	return nil
}

// DeleteItem hard-deletes the item identified by id and tipo.
func (ws *WarehouseStore) DeleteItem(ctx context.Context, id, tipo string) apperrors.Error {
	result, errDb := ws.db.ExecContext(ctx,
		`DELETE FROM itens_portal WHERE id = $1 AND tipo = $2`, id, tipo)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("id", id).Msg("failed to delete catalog item")
		return dberror.ErrDatabase.Err(errDb)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return dberror.ErrNotFound.Msg("item nao encontrado")
	}
	return nil
}

// DashboardExists reports whether a catalog item with tipo dashboard and the
// given id is registered.
func (ws *WarehouseStore) DashboardExists(ctx context.Context, dashboardID string) (bool, apperrors.Error) {
	var exists bool
	errDb := ws.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM itens_portal WHERE id = $1 AND tipo = 'dashboard')`,
		dashboardID).Scan(&exists)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Msg("failed to check dashboard")
		return false, dberror.ErrDatabase.Err(errDb)
	}
	return exists, nil
}
