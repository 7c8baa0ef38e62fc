package postgresql

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/dberror"
	"github.com/worlddata/portalsrv/internal/portalsrv/telemetry"
)

const overviewTopLimit = 10

// InsertEvent appends one telemetry event.
func (ws *WarehouseStore) InsertEvent(ctx context.Context, event *telemetry.Event) apperrors.Error {
	query := `
		INSERT INTO telemetry_events (event_id, user_email, event_type, page_path,
			page_title, referrer, session_id, user_agent, ip_hash, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	if _, errDb := ws.db.ExecContext(ctx, query,
		event.EventID, event.UserEmail, event.EventType, event.PagePath,
		event.PageTitle, event.Referrer, event.SessionID, event.UserAgent,
		event.IPHash, event.MetadataJSON,
	); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("event_id", event.EventID).Msg("failed to insert telemetry event")
		return dberror.ErrDatabase.Err(errDb)
	}
	return nil
}

// EventsOverview aggregates the telemetry of the [from, to) window.
func (ws *WarehouseStore) EventsOverview(ctx context.Context, from, to time.Time) (*telemetry.Overview, apperrors.Error) {
	overview := &telemetry.Overview{
		TopPages: []telemetry.PageStat{},
		TopUsers: []telemetry.UserStat{},
	}

	errDb := ws.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE event_type = 'page_view'),
			COUNT(DISTINCT user_email),
			COUNT(DISTINCT page_path)
		FROM telemetry_events
		WHERE criado_em >= $1 AND criado_em < $2`, from, to).
		Scan(&overview.Events, &overview.PageViews, &overview.UniqueUsers, &overview.UniquePages)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to aggregate telemetry totals")
		return nil, dberror.ErrDatabase.Err(errDb)
	}

	pageRows, errDb := ws.db.QueryContext(ctx, `
		SELECT page_path, COUNT(*), COUNT(DISTINCT user_email)
		FROM telemetry_events
		WHERE criado_em >= $1 AND criado_em < $2 AND event_type = 'page_view'
		GROUP BY page_path
		ORDER BY COUNT(*) DESC, page_path ASC
		LIMIT $3`, from, to, overviewTopLimit)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to aggregate top pages")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer pageRows.Close()
	for pageRows.Next() {
		var stat telemetry.PageStat
		if errDb := pageRows.Scan(&stat.PagePath, &stat.Views, &stat.UniqueUsers); errDb != nil {
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		overview.TopPages = append(overview.TopPages, stat)
	}
	if errDb := pageRows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}

	userRows, errDb := ws.db.QueryContext(ctx, `
		SELECT user_email, COUNT(*), COUNT(DISTINCT page_path)
		FROM telemetry_events
		WHERE criado_em >= $1 AND criado_em < $2 AND event_type = 'page_view'
		GROUP BY user_email
		ORDER BY COUNT(*) DESC, user_email ASC
		LIMIT $3`, from, to, overviewTopLimit)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to aggregate top users")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer userRows.Close()
	for userRows.Next() {
		var stat telemetry.UserStat
		if errDb := userRows.Scan(&stat.UserEmail, &stat.Views, &stat.UniquePages); errDb != nil {
			return nil, dberror.ErrDatabase.Err(errDb)
		}
		overview.TopUsers = append(overview.TopUsers, stat)
	}
	if errDb := userRows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}

	return overview, nil
}
