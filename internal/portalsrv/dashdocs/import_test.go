package dashdocs

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
)

// fakeStore keeps the bundle tables in maps keyed the way the warehouse keys
// them, so replace/upsert semantics can be asserted without a live database.
type fakeStore struct {
	dashboards map[string]bool

	views     map[string]View          // dashboard_id/view_id
	insights  map[string]Insight       // dashboard_id/view_id/insight_id
	glossary  map[string]GlossaryField // dashboard_id/view_id/field_id
	snapshots []Payload

	deleteBundleCalls int
}

func newFakeStore(dashboards ...string) *fakeStore {
	s := &fakeStore{
		dashboards: map[string]bool{},
		views:      map[string]View{},
		insights:   map[string]Insight{},
		glossary:   map[string]GlossaryField{},
	}
	for _, id := range dashboards {
		s.dashboards[id] = true
	}
	return s
}

func (s *fakeStore) DashboardExists(_ context.Context, dashboardID string) (bool, apperrors.Error) {
	return s.dashboards[dashboardID], nil
}

func (s *fakeStore) DeleteBundle(_ context.Context, dashboardID string) apperrors.Error {
	s.deleteBundleCalls++
	for key := range s.views {
		if keyDashboard(key) == dashboardID {
			delete(s.views, key)
		}
	}
	for key := range s.insights {
		if keyDashboard(key) == dashboardID {
			delete(s.insights, key)
		}
	}
	for key := range s.glossary {
		if keyDashboard(key) == dashboardID {
			delete(s.glossary, key)
		}
	}
	return nil
}

func (s *fakeStore) InsertView(_ context.Context, dashboardID string, view *View) apperrors.Error {
	s.views[dashboardID+"/"+view.ViewID] = *view
	return nil
}

func (s *fakeStore) UpsertView(ctx context.Context, dashboardID string, view *View) apperrors.Error {
	return s.InsertView(ctx, dashboardID, view)
}

func (s *fakeStore) InsertInsight(_ context.Context, dashboardID, viewID string, insight *Insight, _ string) apperrors.Error {
	s.insights[dashboardID+"/"+viewID+"/"+insight.InsightID] = *insight
	return nil
}

func (s *fakeStore) UpsertInsight(ctx context.Context, dashboardID, viewID string, insight *Insight, sourceFile string) apperrors.Error {
	return s.InsertInsight(ctx, dashboardID, viewID, insight, sourceFile)
}

func (s *fakeStore) InsertGlossaryField(_ context.Context, dashboardID, viewID string, field *GlossaryField, _ string) apperrors.Error {
	s.glossary[dashboardID+"/"+viewID+"/"+field.FieldID] = *field
	return nil
}

func (s *fakeStore) UpsertGlossaryField(ctx context.Context, dashboardID, viewID string, field *GlossaryField, sourceFile string) apperrors.Error {
	return s.InsertGlossaryField(ctx, dashboardID, viewID, field, sourceFile)
}

func (s *fakeStore) InsertPayloadSnapshot(_ context.Context, _ string, payload *Payload) apperrors.Error {
	s.snapshots = append(s.snapshots, *payload)
	return nil
}

func (s *fakeStore) GetBundle(_ context.Context, dashboardID string) (*Payload, apperrors.Error) {
	var views []View
	for key, view := range s.views {
		if keyDashboard(key) == dashboardID {
			views = append(views, view)
		}
	}
	if len(views) == 0 {
		return nil, nil
	}
	sort.Slice(views, func(i, j int) bool { return views[i].SortOrder < views[j].SortOrder })
	return &Payload{DashboardID: dashboardID, Views: views}, nil
}

func (s *fakeStore) DeleteSnapshots(_ context.Context, _ string) apperrors.Error {
	return nil
}

func (s *fakeStore) viewIDs(dashboardID string) []string {
	var ids []string
	for key := range s.views {
		if keyDashboard(key) == dashboardID {
			ids = append(ids, key[len(dashboardID)+1:])
		}
	}
	sort.Strings(ids)
	return ids
}

func keyDashboard(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i]
		}
	}
	return key
}

func payloadWithViews(dashboardID string, viewTitles ...string) *Payload {
	p := &Payload{
		Version:     "1.0.0",
		GeneratedAt: "2026-01-01T00:00:00Z",
		Source:      "test",
		DashboardID: dashboardID,
	}
	for i, title := range viewTitles {
		p.Views = append(p.Views, View{
			ViewID:    title,
			Title:     title,
			ViewType:  ViewTypeMixed,
			SortOrder: i,
			Status:    "ativo",
			Insights: []Insight{
				{InsightID: fmt.Sprintf("%s_i1", title), Title: "insight", Notes: []string{}, Tags: []string{}},
			},
			GlossaryFields: []GlossaryField{
				{FieldID: fmt.Sprintf("%s_f1", title), Name: "campo", Tags: []string{}},
			},
		})
	}
	return p
}

func TestImportPreconditionDashboardMustExist(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore() // no dashboards registered
	importer := NewImporter(store)

	_, err := importer.Import(ctx, payloadWithViews("ghost", "a"), ModeReplace)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDashboardNotFound)
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, store.views, "no writes on precondition failure")
	assert.Empty(t, store.snapshots)
	assert.Zero(t, store.deleteBundleCalls)
}

func TestImportReplaceIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("dash-1")
	importer := NewImporter(store)

	_, err := importer.Import(ctx, payloadWithViews("dash-1", "a", "b"), ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, store.viewIDs("dash-1"))

	result, err := importer.Import(ctx, payloadWithViews("dash-1", "c"), ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, store.viewIDs("dash-1"), "nothing from the first payload survives")
	assert.Equal(t, Summary{Views: 1, Insights: 1, GlossaryFields: 1}, result.Counts)
	assert.Len(t, store.snapshots, 2, "snapshot appended on every import")
}

func TestImportUpsertIsNonDestructive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("dash-1")
	importer := NewImporter(store)

	_, err := importer.Import(ctx, payloadWithViews("dash-1", "a"), ModeUpsert)
	require.NoError(t, err)
	_, err = importer.Import(ctx, payloadWithViews("dash-1", "b"), ModeUpsert)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, store.viewIDs("dash-1"), "upsert keeps rows absent from the new payload")
	assert.Zero(t, store.deleteBundleCalls)
}

func TestImportFillsViewDefaultsFromPayload(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("dash-1")
	importer := NewImporter(store)

	payload := payloadWithViews("dash-1", "a")
	payload.Views[0].Source = nil
	payload.Views[0].Version = nil
	payload.Views[0].GeneratedAt = nil

	_, err := importer.Import(ctx, payload, ModeReplace)
	require.NoError(t, err)

	stored := store.views["dash-1/a"]
	require.NotNil(t, stored.Source)
	assert.Equal(t, "test", *stored.Source)
	require.NotNil(t, stored.Version)
	assert.Equal(t, "1.0.0", *stored.Version)
	require.NotNil(t, stored.GeneratedAt)
	assert.Equal(t, "2026-01-01T00:00:00Z", *stored.GeneratedAt)
}

func TestSanitizeMode(t *testing.T) {
	assert.Equal(t, ModeUpsert, SanitizeMode("UPSERT"))
	assert.Equal(t, ModeReplace, SanitizeMode("replace"))
	assert.Equal(t, ModeReplace, SanitizeMode(""))
	assert.Equal(t, ModeReplace, SanitizeMode("merge"))
}
