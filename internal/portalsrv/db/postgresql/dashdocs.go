package postgresql

import (
	"context"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/dashdocs"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/dberror"
)

// DeleteBundle removes every view, insight and glossary row of the dashboard.
// The three deletes run as sequential statements, matching the import
// pipeline's append-only consistency model.
func (ws *WarehouseStore) DeleteBundle(ctx context.Context, dashboardID string) apperrors.Error {
	for _, table := range []string{"dashboard_insights", "dashboard_glossary", "dashboard_views"} {
		if _, errDb := ws.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE dashboard_id = $1`, dashboardID); errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Str("table", table).
				Msg("failed to delete dashboard docs")
			return dberror.ErrDatabase.Err(errDb)
		}
	}
	return nil
}

func (ws *WarehouseStore) writeView(ctx context.Context, dashboardID string, view *dashdocs.View, upsert bool) apperrors.Error {
	query := `
		INSERT INTO dashboard_views (dashboard_id, view_id, title, view_type,
			source, version, generated_at, sort_order, status, metric_owner, data_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if upsert {
		query += `
		ON CONFLICT (dashboard_id, view_id) DO UPDATE SET
			title = EXCLUDED.title,
			view_type = EXCLUDED.view_type,
			source = EXCLUDED.source,
			version = EXCLUDED.version,
			generated_at = EXCLUDED.generated_at,
			sort_order = EXCLUDED.sort_order,
			status = EXCLUDED.status,
			metric_owner = EXCLUDED.metric_owner,
			data_source = EXCLUDED.data_source`
	}
	if _, errDb := ws.db.ExecContext(ctx, query,
		dashboardID, view.ViewID, view.Title, string(view.ViewType),
		view.Source, view.Version, view.GeneratedAt, view.SortOrder,
		view.Status, view.MetricOwner, view.DataSource,
	); errDb != nil {
		if isUniqueViolation(errDb) {
			return dberror.ErrAlreadyExists.Msg("view ja existe: " + view.ViewID)
		}
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Str("view_id", view.ViewID).
			Msg("failed to write dashboard view")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

func (ws *WarehouseStore) InsertView(ctx context.Context, dashboardID string, view *dashdocs.View) apperrors.Error {
	return ws.writeView(ctx, dashboardID, view, false)
}

func (ws *WarehouseStore) UpsertView(ctx context.Context, dashboardID string, view *dashdocs.View) apperrors.Error {
	return ws.writeView(ctx, dashboardID, view, true)
}

func (ws *WarehouseStore) writeInsight(ctx context.Context, dashboardID, viewID string, insight *dashdocs.Insight, sourceFile string, upsert bool) apperrors.Error {
	query := `
		INSERT INTO dashboard_insights (dashboard_id, view_id, insight_id,
			title, description, notes, tags, sort_order, source_file, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)`
	if upsert {
		query += `
		ON CONFLICT (dashboard_id, view_id, insight_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			notes = EXCLUDED.notes,
			tags = EXCLUDED.tags,
			sort_order = EXCLUDED.sort_order,
			source_file = EXCLUDED.source_file,
			is_active = TRUE`
	}
	if _, errDb := ws.db.ExecContext(ctx, query,
		dashboardID, viewID, insight.InsightID, insight.Title, insight.Description,
		pq.Array(insight.Notes), pq.Array(insight.Tags), insight.SortOrder, sourceFile,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Str("insight_id", insight.InsightID).
			Msg("failed to write dashboard insight")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

func (ws *WarehouseStore) InsertInsight(ctx context.Context, dashboardID, viewID string, insight *dashdocs.Insight, sourceFile string) apperrors.Error {
	return ws.writeInsight(ctx, dashboardID, viewID, insight, sourceFile, false)
}

func (ws *WarehouseStore) UpsertInsight(ctx context.Context, dashboardID, viewID string, insight *dashdocs.Insight, sourceFile string) apperrors.Error {
	return ws.writeInsight(ctx, dashboardID, viewID, insight, sourceFile, true)
}

func (ws *WarehouseStore) writeGlossaryField(ctx context.Context, dashboardID, viewID string, field *dashdocs.GlossaryField, sourceFile string, upsert bool) apperrors.Error {
	query := `
		INSERT INTO dashboard_glossary (dashboard_id, view_id, field_id,
			name, description, formula, example, unit, tags, sort_order, source_file, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)`
	if upsert {
		query += `
		ON CONFLICT (dashboard_id, view_id, field_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			formula = EXCLUDED.formula,
			example = EXCLUDED.example,
			unit = EXCLUDED.unit,
			tags = EXCLUDED.tags,
			sort_order = EXCLUDED.sort_order,
			source_file = EXCLUDED.source_file,
			is_active = TRUE`
	}
	if _, errDb := ws.db.ExecContext(ctx, query,
		dashboardID, viewID, field.FieldID, field.Name, field.Description,
		field.Formula, field.Example, field.Unit, pq.Array(field.Tags),
		field.SortOrder, sourceFile,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Str("field_id", field.FieldID).
			Msg("failed to write glossary field")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

func (ws *WarehouseStore) InsertGlossaryField(ctx context.Context, dashboardID, viewID string, field *dashdocs.GlossaryField, sourceFile string) apperrors.Error {
	return ws.writeGlossaryField(ctx, dashboardID, viewID, field, sourceFile, false)
}

func (ws *WarehouseStore) UpsertGlossaryField(ctx context.Context, dashboardID, viewID string, field *dashdocs.GlossaryField, sourceFile string) apperrors.Error {
	return ws.writeGlossaryField(ctx, dashboardID, viewID, field, sourceFile, true)
}

// InsertPayloadSnapshot appends the normalized payload as a JSON document.
// Snapshots are the audit trail of imports, never rewritten.
func (ws *WarehouseStore) InsertPayloadSnapshot(ctx context.Context, payloadID string, payload *dashdocs.Payload) apperrors.Error {
	doc, errJs := json.Marshal(payload)
	if errJs != nil {
		return dberror.ErrInvalidInput.Err(errJs)
	}
	if _, errDb := ws.db.ExecContext(ctx,
		`INSERT INTO dashboard_payloads (payload_id, dashboard_id, payload) VALUES ($1, $2, $3)`,
		payloadID, payload.DashboardID, doc,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", payload.DashboardID).
			Msg("failed to insert payload snapshot")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// DeleteSnapshots removes the stored payload history of a dashboard.
func (ws *WarehouseStore) DeleteSnapshots(ctx context.Context, dashboardID string) apperrors.Error {
	if _, errDb := ws.db.ExecContext(ctx,
		`DELETE FROM dashboard_payloads WHERE dashboard_id = $1`, dashboardID); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).
			Msg("failed to delete payload snapshots")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// GetBundle assembles the active documentation bundle of a dashboard from the
// three tables. Returns ErrNotFound when the dashboard has no active views.
func (ws *WarehouseStore) GetBundle(ctx context.Context, dashboardID string) (*dashdocs.Payload, apperrors.Error) {
	viewRows, errDb := ws.db.QueryContext(ctx, `
		SELECT view_id, title, view_type, source, version, generated_at,
			sort_order, status, metric_owner, data_source
		FROM dashboard_views
		WHERE dashboard_id = $1 AND status = 'ativo'
		ORDER BY sort_order ASC, view_id ASC`, dashboardID)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Msg("failed to load dashboard views")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer viewRows.Close()

	views := []dashdocs.View{}
	index := map[string]int{}
	for viewRows.Next() {
		var view dashdocs.View
		var viewType string
		if errDb := viewRows.Scan(
			&view.ViewID, &view.Title, &viewType, &view.Source, &view.Version,
			&view.GeneratedAt, &view.SortOrder, &view.Status, &view.MetricOwner,
			&view.DataSource,
		); errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Msg("failed to scan dashboard view")
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		view.ViewType = dashdocs.ViewType(viewType)
		view.Insights = []dashdocs.Insight{}
		view.GlossaryFields = []dashdocs.GlossaryField{}
		index[view.ViewID] = len(views)
		views = append(views, view)
	}
	if errDb := viewRows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	if len(views) == 0 {
		return nil, dberror.ErrNotFound.Msg("documentacao nao encontrada")
	}

	insightRows, errDb := ws.db.QueryContext(ctx, `
		SELECT view_id, insight_id, title, description, notes, tags, sort_order
		FROM dashboard_insights
		WHERE dashboard_id = $1 AND is_active = TRUE
		ORDER BY sort_order ASC, insight_id ASC`, dashboardID)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Msg("failed to load dashboard insights")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer insightRows.Close()
	for insightRows.Next() {
		var viewID string
		var insight dashdocs.Insight
		if errDb := insightRows.Scan(
			&viewID, &insight.InsightID, &insight.Title, &insight.Description,
			pq.Array(&insight.Notes), pq.Array(&insight.Tags), &insight.SortOrder,
		); errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Msg("failed to scan dashboard insight")
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		if i, ok := index[viewID]; ok {
			views[i].Insights = append(views[i].Insights, insight)
		}
	}
	if errDb := insightRows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}

	fieldRows, errDb := ws.db.QueryContext(ctx, `
		SELECT view_id, field_id, name, description, formula, example, unit, tags, sort_order
		FROM dashboard_glossary
		WHERE dashboard_id = $1 AND is_active = TRUE
		ORDER BY sort_order ASC, field_id ASC`, dashboardID)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("dashboard_id", dashboardID).Msg("failed to load glossary fields")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var viewID string
		var field dashdocs.GlossaryField
		if errDb := fieldRows.Scan(
			&viewID, &field.FieldID, &field.Name, &field.Description,
			&field.Formula, &field.Example, &field.Unit, pq.Array(&field.Tags),
			&field.SortOrder,
		); errDb != nil {
			log.Ctx(ctx).Error().Err(errDb).Msg("failed to scan glossary field")
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		if i, ok := index[viewID]; ok {
			views[i].GlossaryFields = append(views[i].GlossaryFields, field)
		}
	}
	if errDb := fieldRows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}

	payload := &dashdocs.Payload{
		DashboardID: dashboardID,
		Views:       views,
	}
	first := views[0]
	if first.Version != nil {
		payload.Version = *first.Version
	}
	if first.GeneratedAt != nil {
		payload.GeneratedAt = *first.GeneratedAt
	}
	if first.Source != nil {
		payload.Source = *first.Source
	}
	return payload, nil
}
