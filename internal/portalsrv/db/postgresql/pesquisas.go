package postgresql

import (
	"context"
	"database/sql"
	"regexp"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/dberror"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
	"github.com/worlddata/portalsrv/internal/portalsrv/pesquisas"
)

const pesquisaColumns = `id, titulo, fonte, link, data, conteudo, tema, data_inicio,
	responsavel, cliente, observacao, natural_key_hash, criado_em, atualizado_em`

var backupSuffixRe = regexp.MustCompile(`^[0-9]{8}_[0-9]{6}$`)

func scanPesquisa(row rowScanner) (*models.Pesquisa, error) {
	var p models.Pesquisa
	err := row.Scan(
		&p.ID, &p.Titulo, &p.Fonte, &p.Link, &p.Data, &p.Conteudo, &p.Tema,
		&p.DataInicio, &p.Responsavel, &p.Cliente, &p.Observacao,
		&p.NaturalKeyHash, &p.CriadoEm, &p.AtualizadoEm,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func naturalKeyHashOf(titulo, fonte, data, tema string) string {
	return pesquisas.NaturalKeyHash(pesquisas.NaturalKey(titulo, fonte, data, tema))
}

// ListPesquisas returns every research entry, newest first.
func (ws *WarehouseStore) ListPesquisas(ctx context.Context) ([]models.Pesquisa, apperrors.Error) {
	rows, errDb := ws.db.QueryContext(ctx,
		`SELECT `+pesquisaColumns+` FROM pesquisas ORDER BY data DESC, titulo ASC`)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to list research entries")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer rows.Close()

	entries := []models.Pesquisa{}
	for rows.Next() {
		entry, errDb := scanPesquisa(rows)
		if errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Msg("failed to scan research entry")
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		entries = append(entries, *entry)
	}
	if errDb := rows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	return entries, nil
}

// GetPesquisa retrieves one research entry by id.
func (ws *WarehouseStore) GetPesquisa(ctx context.Context, id string) (*models.Pesquisa, apperrors.Error) {
	entry, errDb := scanPesquisa(ws.db.QueryRowContext(ctx,
		`SELECT `+pesquisaColumns+` FROM pesquisas WHERE id = $1`, id))
	if errDb != nil {
		if errDb == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("pesquisa nao encontrada")
		}
		log.Ctx(ctx).Error().Err(errDb).Str("id", id).Msg("failed to get research entry")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	return entry, nil
}

// CreatePesquisa inserts a research entry. The natural-key hash is derived
// here so manual rows and imported rows share the uniqueness constraint.
func (ws *WarehouseStore) CreatePesquisa(ctx context.Context, entry *models.Pesquisa) apperrors.Error {
	entry.NaturalKeyHash = naturalKeyHashOf(entry.Titulo, entry.Fonte, entry.Data, entry.Tema)
	query := `
		INSERT INTO pesquisas (id, titulo, fonte, link, data, conteudo, tema,
			data_inicio, responsavel, cliente, observacao, natural_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (natural_key_hash) DO NOTHING
		RETURNING id;
	`
	var insertedID string
	errDb := ws.db.QueryRowContext(ctx, query,
		entry.ID, entry.Titulo, entry.Fonte, entry.Link, entry.Data,
		entry.Conteudo, entry.Tema, entry.DataInicio, entry.Responsavel,
		entry.Cliente, entry.Observacao, entry.NaturalKeyHash,
	).Scan(&insertedID)
	if errDb != nil {
		if errDb == sql.ErrNoRows {
			return dberror.ErrAlreadyExists.Msg("pesquisa ja existe")
		}
		log.Ctx(ctx).Error().Err(errDb).Str("id", entry.ID).Msg("failed to insert research entry")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// UpdatePesquisa overwrites the entry identified by id.
func (ws *WarehouseStore) UpdatePesquisa(ctx context.Context, entry *models.Pesquisa) apperrors.Error {
	entry.NaturalKeyHash = naturalKeyHashOf(entry.Titulo, entry.Fonte, entry.Data, entry.Tema)
	query := `
		UPDATE pesquisas
		SET titulo = $2, fonte = $3, link = $4, data = $5, conteudo = $6,
			tema = $7, data_inicio = $8, responsavel = $9, cliente = $10,
			observacao = $11, natural_key_hash = $12, atualizado_em = NOW()
		WHERE id = $1;
	`
	result, errDb := ws.db.ExecContext(ctx, query,
		entry.ID, entry.Titulo, entry.Fonte, entry.Link, entry.Data,
		entry.Conteudo, entry.Tema, entry.DataInicio, entry.Responsavel,
		entry.Cliente, entry.Observacao, entry.NaturalKeyHash,
	)
	if errDb != nil {
		if isUniqueViolation(errDb) {
			return dberror.ErrAlreadyExists.Msg("outra pesquisa ja usa esta chave natural")
		}
		log.Ctx(ctx).Error().Err(errDb).Str("id", entry.ID).Msg("failed to update research entry")
		return dberror.ErrDatabase.Err(errDb)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return dberror.ErrNotFound.Msg("pesquisa nao encontrada")
	}
	return nil
}

// DeletePesquisa hard-deletes the entry identified by id.
func (ws *WarehouseStore) DeletePesquisa(ctx context.Context, id string) apperrors.Error {
	result, errDb := ws.db.ExecContext(ctx, `DELETE FROM pesquisas WHERE id = $1`, id)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("id", id).Msg("failed to delete research entry")
		return dberror.ErrDatabase.Err(errDb)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return dberror.ErrNotFound.Msg("pesquisa nao encontrada")
	}
	return nil
}

// CountExistingByNaturalKey counts table rows whose natural-key hash is in
// hashes. The import pipeline uses the count to split inserted from updated.
func (ws *WarehouseStore) CountExistingByNaturalKey(ctx context.Context, hashes []string) (int, apperrors.Error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	var count int
	errDb := ws.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pesquisas WHERE natural_key_hash = ANY($1)`,
		pq.Array(hashes)).Scan(&count)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to count existing research entries")
		return 0, dberror.ErrDatabase.Err(errDb)
	}
	return count, nil
}

// BackupResearchTable snapshots the pesquisas table into
// pesquisas_backup_<suffix> and returns the backup table name.
func (ws *WarehouseStore) BackupResearchTable(ctx context.Context, suffix string) (string, apperrors.Error) {
	if !backupSuffixRe.MatchString(suffix) {
		return "", dberror.ErrInvalidInput.Msg("invalid backup suffix")
	}
	name := "pesquisas_backup_" + suffix
	// Identifiers cannot be bound as parameters; the suffix shape is
	// validated above.
	query := `CREATE TABLE ` + pq.QuoteIdentifier(name) + ` AS TABLE pesquisas`
	if _, errDb := ws.db.ExecContext(ctx, query); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("backup_table", name).Msg("failed to back up research table")
		return "", dberror.ErrDatabase.Err(errDb)
	}
	log.Ctx(ctx).Info().Str("backup_table", name).Msg("research table backed up")
	return name, nil
}

// TruncateResearch empties the pesquisas table.
func (ws *WarehouseStore) TruncateResearch(ctx context.Context) apperrors.Error {
	if _, errDb := ws.db.ExecContext(ctx, `TRUNCATE pesquisas`); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to truncate research table")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// InsertImportedRow appends an imported row without conflict handling. Used
// by replace imports, which run against a freshly truncated table.
func (ws *WarehouseStore) InsertImportedRow(ctx context.Context, row *pesquisas.Row) apperrors.Error {
	query := `
		INSERT INTO pesquisas (id, titulo, fonte, link, data, conteudo, tema,
			data_inicio, responsavel, cliente, observacao, natural_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	hash := naturalKeyHashOf(row.Titulo, row.Fonte, row.Data, row.Tema)
	if _, errDb := ws.db.ExecContext(ctx, query,
		row.ID, row.Titulo, row.Fonte, row.Link, row.Data, row.Conteudo,
		row.Tema, row.DataInicio, row.Responsavel, row.Cliente, row.Observacao,
		hash,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("id", row.ID).Msg("failed to insert imported research row")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// UpsertImportedRow merges an imported row on its natural key. Matched rows
// keep their id and criado_em, every other field is overwritten.
func (ws *WarehouseStore) UpsertImportedRow(ctx context.Context, row *pesquisas.Row) apperrors.Error {
	query := `
		INSERT INTO pesquisas (id, titulo, fonte, link, data, conteudo, tema,
			data_inicio, responsavel, cliente, observacao, natural_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (natural_key_hash) DO UPDATE SET
			titulo = EXCLUDED.titulo,
			fonte = EXCLUDED.fonte,
			link = EXCLUDED.link,
			data = EXCLUDED.data,
			conteudo = EXCLUDED.conteudo,
			tema = EXCLUDED.tema,
			data_inicio = EXCLUDED.data_inicio,
			responsavel = EXCLUDED.responsavel,
			cliente = EXCLUDED.cliente,
			observacao = EXCLUDED.observacao,
			atualizado_em = NOW();
	`
	hash := naturalKeyHashOf(row.Titulo, row.Fonte, row.Data, row.Tema)
	if _, errDb := ws.db.ExecContext(ctx, query,
		row.ID, row.Titulo, row.Fonte, row.Link, row.Data, row.Conteudo,
		row.Tema, row.DataInicio, row.Responsavel, row.Cliente, row.Observacao,
		hash,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("id", row.ID).Msg("failed to upsert imported research row")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}
