package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/auth"
	"github.com/worlddata/portalsrv/internal/portalsrv/dashdocs"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/dberror"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
	"github.com/worlddata/portalsrv/internal/portalsrv/pesquisas"
	"github.com/worlddata/portalsrv/internal/portalsrv/readshape"
	"github.com/worlddata/portalsrv/internal/portalsrv/search"
	"github.com/worlddata/portalsrv/internal/portalsrv/telemetry"
)

// fakeStore is an in-memory db.Store for handler tests. Soft-deleted insight
// and glossary rows are tracked in the inactive maps, keyed
// "dashboard|view|id", mirroring the warehouse is_active flag.
type fakeStore struct {
	items            map[string]*models.CatalogItem
	research         map[string]*models.Pesquisa
	bundles          map[string]*dashdocs.Payload
	snapshots        map[string][]string
	inactiveInsights map[string]bool
	inactiveGlossary map[string]bool
	events           []telemetry.Event
	backups          []string
	truncated        bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:            map[string]*models.CatalogItem{},
		research:         map[string]*models.Pesquisa{},
		bundles:          map[string]*dashdocs.Payload{},
		snapshots:        map[string][]string{},
		inactiveInsights: map[string]bool{},
		inactiveGlossary: map[string]bool{},
	}
}

func bundleRowKey(dashboardID, viewID, id string) string {
	return dashboardID + "|" + viewID + "|" + id
}

func (s *fakeStore) ListItens(_ context.Context, tipo string) ([]models.CatalogItem, apperrors.Error) {
	out := []models.CatalogItem{}
	for _, item := range s.items {
		if tipo == "" || item.Tipo == tipo {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

func (s *fakeStore) GetItem(_ context.Context, id string) (*models.CatalogItem, apperrors.Error) {
	item, ok := s.items[id]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("item nao encontrado")
	}
	copied := *item
	return &copied, nil
}

func (s *fakeStore) CreateItem(_ context.Context, item *models.CatalogItem) apperrors.Error {
	if _, exists := s.items[item.ID]; exists {
		return dberror.ErrAlreadyExists.Msg("item ja existe")
	}
	copied := *item
	copied.UltimaAtualizacao = time.Now().UTC()
	copied.CriadoEm = copied.UltimaAtualizacao
	s.items[item.ID] = &copied
	return nil
}

func (s *fakeStore) UpdateItem(_ context.Context, item *models.CatalogItem) apperrors.Error {
	existing, ok := s.items[item.ID]
	if !ok || existing.Tipo != item.Tipo {
		return dberror.ErrNotFound.Msg("item nao encontrado")
	}
	copied := *item
	copied.CriadoEm = existing.CriadoEm
	copied.UltimaAtualizacao = time.Now().UTC()
	s.items[item.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteItem(_ context.Context, id, tipo string) apperrors.Error {
	existing, ok := s.items[id]
	if !ok || existing.Tipo != tipo {
		return dberror.ErrNotFound.Msg("item nao encontrado")
	}
	delete(s.items, id)
	return nil
}

func researchHash(titulo, fonte, data, tema string) string {
	return pesquisas.NaturalKeyHash(pesquisas.NaturalKey(titulo, fonte, data, tema))
}

func (s *fakeStore) ListPesquisas(_ context.Context) ([]models.Pesquisa, apperrors.Error) {
	out := []models.Pesquisa{}
	for _, entry := range s.research {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Titulo < out[j].Titulo })
	return out, nil
}

func (s *fakeStore) GetPesquisa(_ context.Context, id string) (*models.Pesquisa, apperrors.Error) {
	entry, ok := s.research[id]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("pesquisa nao encontrada")
	}
	copied := *entry
	return &copied, nil
}

func (s *fakeStore) CreatePesquisa(_ context.Context, entry *models.Pesquisa) apperrors.Error {
	entry.NaturalKeyHash = researchHash(entry.Titulo, entry.Fonte, entry.Data, entry.Tema)
	for _, existing := range s.research {
		if existing.NaturalKeyHash == entry.NaturalKeyHash {
			return dberror.ErrAlreadyExists.Msg("pesquisa ja existe")
		}
	}
	copied := *entry
	s.research[entry.ID] = &copied
	return nil
}

func (s *fakeStore) UpdatePesquisa(_ context.Context, entry *models.Pesquisa) apperrors.Error {
	if _, ok := s.research[entry.ID]; !ok {
		return dberror.ErrNotFound.Msg("pesquisa nao encontrada")
	}
	entry.NaturalKeyHash = researchHash(entry.Titulo, entry.Fonte, entry.Data, entry.Tema)
	copied := *entry
	s.research[entry.ID] = &copied
	return nil
}

func (s *fakeStore) DeletePesquisa(_ context.Context, id string) apperrors.Error {
	if _, ok := s.research[id]; !ok {
		return dberror.ErrNotFound.Msg("pesquisa nao encontrada")
	}
	delete(s.research, id)
	return nil
}

func (s *fakeStore) CountExistingByNaturalKey(_ context.Context, hashes []string) (int, apperrors.Error) {
	set := map[string]bool{}
	for _, hash := range hashes {
		set[hash] = true
	}
	count := 0
	for _, entry := range s.research {
		if set[entry.NaturalKeyHash] {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) BackupResearchTable(_ context.Context, suffix string) (string, apperrors.Error) {
	name := "pesquisas_backup_" + suffix
	s.backups = append(s.backups, name)
	return name, nil
}

func (s *fakeStore) TruncateResearch(_ context.Context) apperrors.Error {
	s.research = map[string]*models.Pesquisa{}
	s.truncated = true
	return nil
}

func (s *fakeStore) InsertImportedRow(_ context.Context, row *pesquisas.Row) apperrors.Error {
	s.research[row.ID] = &models.Pesquisa{
		ID: row.ID, Titulo: row.Titulo, Fonte: row.Fonte, Link: row.Link,
		Data: row.Data, Conteudo: row.Conteudo, Tema: row.Tema,
		DataInicio: row.DataInicio, Responsavel: row.Responsavel,
		Cliente: row.Cliente, Observacao: row.Observacao,
		NaturalKeyHash: researchHash(row.Titulo, row.Fonte, row.Data, row.Tema),
	}
	return nil
}

func (s *fakeStore) UpsertImportedRow(ctx context.Context, row *pesquisas.Row) apperrors.Error {
	hash := researchHash(row.Titulo, row.Fonte, row.Data, row.Tema)
	for id, existing := range s.research {
		if existing.NaturalKeyHash == hash {
			delete(s.research, id)
			break
		}
	}
	return s.InsertImportedRow(ctx, row)
}

func (s *fakeStore) DashboardExists(_ context.Context, dashboardID string) (bool, apperrors.Error) {
	item, ok := s.items[dashboardID]
	return ok && item.Tipo == "dashboard", nil
}

func (s *fakeStore) DeleteBundle(_ context.Context, dashboardID string) apperrors.Error {
	delete(s.bundles, dashboardID)
	return nil
}

func (s *fakeStore) bundle(dashboardID string) *dashdocs.Payload {
	payload, ok := s.bundles[dashboardID]
	if !ok {
		payload = &dashdocs.Payload{DashboardID: dashboardID}
		s.bundles[dashboardID] = payload
	}
	return payload
}

func (s *fakeStore) writeView(dashboardID string, view *dashdocs.View, upsert bool) apperrors.Error {
	payload := s.bundle(dashboardID)
	for i := range payload.Views {
		if payload.Views[i].ViewID == view.ViewID {
			if !upsert {
				return dberror.ErrAlreadyExists
			}
			copied := *view
			copied.Insights = payload.Views[i].Insights
			copied.GlossaryFields = payload.Views[i].GlossaryFields
			payload.Views[i] = copied
			return nil
		}
	}
	copied := *view
	copied.Insights = nil
	copied.GlossaryFields = nil
	payload.Views = append(payload.Views, copied)
	return nil
}

func (s *fakeStore) InsertView(_ context.Context, dashboardID string, view *dashdocs.View) apperrors.Error {
	return s.writeView(dashboardID, view, false)
}

func (s *fakeStore) UpsertView(_ context.Context, dashboardID string, view *dashdocs.View) apperrors.Error {
	return s.writeView(dashboardID, view, true)
}

func (s *fakeStore) viewOf(dashboardID, viewID string) *dashdocs.View {
	payload := s.bundle(dashboardID)
	for i := range payload.Views {
		if payload.Views[i].ViewID == viewID {
			return &payload.Views[i]
		}
	}
	return nil
}

func (s *fakeStore) writeInsight(dashboardID, viewID string, insight *dashdocs.Insight, upsert bool) apperrors.Error {
	view := s.viewOf(dashboardID, viewID)
	if view == nil {
		return dberror.ErrInvalidInput
	}
	for i := range view.Insights {
		if view.Insights[i].InsightID == insight.InsightID {
			if !upsert {
				return dberror.ErrAlreadyExists
			}
			view.Insights[i] = *insight
			delete(s.inactiveInsights, bundleRowKey(dashboardID, viewID, insight.InsightID))
			return nil
		}
	}
	view.Insights = append(view.Insights, *insight)
	delete(s.inactiveInsights, bundleRowKey(dashboardID, viewID, insight.InsightID))
	return nil
}

func (s *fakeStore) InsertInsight(_ context.Context, dashboardID, viewID string, insight *dashdocs.Insight, _ string) apperrors.Error {
	return s.writeInsight(dashboardID, viewID, insight, false)
}

func (s *fakeStore) UpsertInsight(_ context.Context, dashboardID, viewID string, insight *dashdocs.Insight, _ string) apperrors.Error {
	return s.writeInsight(dashboardID, viewID, insight, true)
}

func (s *fakeStore) writeGlossaryField(dashboardID, viewID string, field *dashdocs.GlossaryField, upsert bool) apperrors.Error {
	view := s.viewOf(dashboardID, viewID)
	if view == nil {
		return dberror.ErrInvalidInput
	}
	for i := range view.GlossaryFields {
		if view.GlossaryFields[i].FieldID == field.FieldID {
			if !upsert {
				return dberror.ErrAlreadyExists
			}
			view.GlossaryFields[i] = *field
			delete(s.inactiveGlossary, bundleRowKey(dashboardID, viewID, field.FieldID))
			return nil
		}
	}
	view.GlossaryFields = append(view.GlossaryFields, *field)
	delete(s.inactiveGlossary, bundleRowKey(dashboardID, viewID, field.FieldID))
	return nil
}

func (s *fakeStore) InsertGlossaryField(_ context.Context, dashboardID, viewID string, field *dashdocs.GlossaryField, _ string) apperrors.Error {
	return s.writeGlossaryField(dashboardID, viewID, field, false)
}

func (s *fakeStore) UpsertGlossaryField(_ context.Context, dashboardID, viewID string, field *dashdocs.GlossaryField, _ string) apperrors.Error {
	return s.writeGlossaryField(dashboardID, viewID, field, true)
}

func (s *fakeStore) InsertPayloadSnapshot(_ context.Context, payloadID string, payload *dashdocs.Payload) apperrors.Error {
	s.snapshots[payload.DashboardID] = append(s.snapshots[payload.DashboardID], payloadID)
	return nil
}

func (s *fakeStore) GetBundle(_ context.Context, dashboardID string) (*dashdocs.Payload, apperrors.Error) {
	payload, ok := s.bundles[dashboardID]
	if !ok || len(payload.Views) == 0 {
		return nil, dberror.ErrNotFound.Msg("documentacao nao encontrada")
	}
	out := *payload
	out.Views = make([]dashdocs.View, len(payload.Views))
	for i, view := range payload.Views {
		copied := view
		copied.Insights = []dashdocs.Insight{}
		for _, insight := range view.Insights {
			if !s.inactiveInsights[bundleRowKey(dashboardID, view.ViewID, insight.InsightID)] {
				copied.Insights = append(copied.Insights, insight)
			}
		}
		copied.GlossaryFields = []dashdocs.GlossaryField{}
		for _, field := range view.GlossaryFields {
			if !s.inactiveGlossary[bundleRowKey(dashboardID, view.ViewID, field.FieldID)] {
				copied.GlossaryFields = append(copied.GlossaryFields, field)
			}
		}
		out.Views[i] = copied
	}
	return &out, nil
}

func (s *fakeStore) DeleteSnapshots(_ context.Context, dashboardID string) apperrors.Error {
	delete(s.snapshots, dashboardID)
	return nil
}

func (s *fakeStore) FetchAllDocuments(_ context.Context) ([]search.Document, apperrors.Error) {
	docs := []search.Document{}
	items, _ := s.ListItens(context.Background(), "")
	for i := range items {
		docs = append(docs, search.Document{Tipo: items[i].Tipo, Fields: readshape.Item(&items[i])})
	}
	entries, _ := s.ListPesquisas(context.Background())
	for i := range entries {
		docs = append(docs, search.Document{Tipo: "pesquisa", Fields: readshape.Pesquisa(&entries[i])})
	}
	return docs, nil
}

func (s *fakeStore) InsertEvent(_ context.Context, event *telemetry.Event) apperrors.Error {
	s.events = append(s.events, *event)
	return nil
}

func (s *fakeStore) EventsOverview(_ context.Context, _, _ time.Time) (*telemetry.Overview, apperrors.Error) {
	users := map[string]bool{}
	pages := map[string]bool{}
	for _, event := range s.events {
		users[event.UserEmail] = true
		pages[event.PagePath] = true
	}
	return &telemetry.Overview{
		Events:      int64(len(s.events)),
		PageViews:   int64(len(s.events)),
		UniqueUsers: int64(len(users)),
		UniquePages: int64(len(pages)),
		TopPages:    []telemetry.PageStat{},
		TopUsers:    []telemetry.UserStat{},
	}, nil
}

func newTestServer(t *testing.T, store *fakeStore) *PortalServer {
	t.Helper()
	s, err := CreateNewServer(store)
	require.NoError(t, err)
	s.MountHandlers()
	return s
}

func executeTestRequest(t *testing.T, s *PortalServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withAdminSession(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	token, _, err := auth.IssueSession("admin@localhost")
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(out))
}
