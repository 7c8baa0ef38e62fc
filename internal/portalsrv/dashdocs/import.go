package dashdocs

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
)

// Mode selects the import semantics. Replace clears the whole bundle for the
// dashboard before writing; Upsert merges per row and never deletes rows
// absent from the payload.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeUpsert  Mode = "upsert"
)

// SanitizeMode maps arbitrary input to a valid mode, defaulting to replace.
func SanitizeMode(value string) Mode {
	if strings.ToLower(strings.TrimSpace(value)) == string(ModeUpsert) {
		return ModeUpsert
	}
	return ModeReplace
}

var ErrDashboardNotFound apperrors.Error = apperrors.New("dashboard nao encontrado no catalogo").SetStatusCode(http.StatusBadRequest)

// Store is the warehouse surface the import pipeline and the bundle reader
// need. Implemented by the postgresql store.
type Store interface {
	DashboardExists(ctx context.Context, dashboardID string) (bool, apperrors.Error)
	DeleteBundle(ctx context.Context, dashboardID string) apperrors.Error
	InsertView(ctx context.Context, dashboardID string, view *View) apperrors.Error
	UpsertView(ctx context.Context, dashboardID string, view *View) apperrors.Error
	InsertInsight(ctx context.Context, dashboardID, viewID string, insight *Insight, sourceFile string) apperrors.Error
	UpsertInsight(ctx context.Context, dashboardID, viewID string, insight *Insight, sourceFile string) apperrors.Error
	InsertGlossaryField(ctx context.Context, dashboardID, viewID string, field *GlossaryField, sourceFile string) apperrors.Error
	UpsertGlossaryField(ctx context.Context, dashboardID, viewID string, field *GlossaryField, sourceFile string) apperrors.Error
	InsertPayloadSnapshot(ctx context.Context, payloadID string, payload *Payload) apperrors.Error
	GetBundle(ctx context.Context, dashboardID string) (*Payload, apperrors.Error)
	DeleteSnapshots(ctx context.Context, dashboardID string) apperrors.Error
}

// ImportResult reports what an import wrote, for display in the admin UI.
type ImportResult struct {
	Success     bool    `json:"success"`
	Mode        Mode    `json:"mode"`
	DashboardID string  `json:"dashboard_id"`
	Counts      Summary `json:"counts"`
}

type Importer struct {
	store Store
}

func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import persists a normalized payload. The target dashboard must already
// exist in the catalog with tipo=dashboard; failing that check aborts before
// any write. There is no transaction envelope: a mid-sequence failure leaves
// whatever already succeeded in place.
func (im *Importer) Import(ctx context.Context, payload *Payload, mode Mode) (*ImportResult, apperrors.Error) {
	exists, err := im.store.DashboardExists(ctx, payload.DashboardID)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Ctx(ctx).Info().Str("dashboard_id", payload.DashboardID).Msg("import target dashboard not in catalog")
		return nil, ErrDashboardNotFound.Msg("dashboard nao encontrado no catalogo: " + payload.DashboardID)
	}

	if mode == ModeReplace {
		if err := im.store.DeleteBundle(ctx, payload.DashboardID); err != nil {
			return nil, err
		}
	}

	var counts Summary
	for i := range payload.Views {
		view := effectiveView(&payload.Views[i], payload)
		sourceFile := payload.Source

		if mode == ModeUpsert {
			err = im.store.UpsertView(ctx, payload.DashboardID, view)
		} else {
			err = im.store.InsertView(ctx, payload.DashboardID, view)
		}
		if err != nil {
			return nil, err
		}
		counts.Views++

		for j := range view.Insights {
			insight := &view.Insights[j]
			if mode == ModeUpsert {
				err = im.store.UpsertInsight(ctx, payload.DashboardID, view.ViewID, insight, sourceFile)
			} else {
				err = im.store.InsertInsight(ctx, payload.DashboardID, view.ViewID, insight, sourceFile)
			}
			if err != nil {
				return nil, err
			}
			counts.Insights++
		}

		for j := range view.GlossaryFields {
			field := &view.GlossaryFields[j]
			if mode == ModeUpsert {
				err = im.store.UpsertGlossaryField(ctx, payload.DashboardID, view.ViewID, field, sourceFile)
			} else {
				err = im.store.InsertGlossaryField(ctx, payload.DashboardID, view.ViewID, field, sourceFile)
			}
			if err != nil {
				return nil, err
			}
			counts.GlossaryFields++
		}
	}

	// The snapshot table is the only durable history of what was imported
	// and when; append regardless of mode.
	if err := im.store.InsertPayloadSnapshot(ctx, uuid.NewString(), payload); err != nil {
		return nil, err
	}

	return &ImportResult{
		Success:     true,
		Mode:        mode,
		DashboardID: payload.DashboardID,
		Counts:      counts,
	}, nil
}

// effectiveView fills per-view source, version and generated_at from the
// payload-level values so the store always receives concrete columns.
func effectiveView(view *View, payload *Payload) *View {
	out := *view
	if out.Source == nil {
		out.Source = &payload.Source
	}
	if out.Version == nil {
		out.Version = &payload.Version
	}
	if out.GeneratedAt == nil {
		out.GeneratedAt = &payload.GeneratedAt
	}
	if out.Status == "" {
		out.Status = "ativo"
	}
	return &out
}
