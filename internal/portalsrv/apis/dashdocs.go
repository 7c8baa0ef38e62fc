package apis

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/dashdocs"
)

// readDashboardDocsBody extracts the normalization inputs from a request.
// The raw document may arrive at the top level or nested under payload; the
// dashboard id override comes from the dashboard_id field or query parameter.
func readDashboardDocsBody(r *http.Request) (map[string]any, string, dashdocs.Mode, error) {
	body, errIo := io.ReadAll(r.Body)
	if errIo != nil {
		return nil, "", "", httpx.ErrUnableToReadRequest()
	}
	if !gjson.ValidBytes(body) {
		return nil, "", "", httpx.ErrUnableToParseReqData()
	}

	doc := body
	if nested := gjson.GetBytes(body, "payload"); nested.Exists() && nested.IsObject() {
		doc = []byte(nested.Raw)
	}
	mode := dashdocs.SanitizeMode(gjson.GetBytes(body, "mode").String())
	forcedID := gjson.GetBytes(body, "dashboard_id").String()
	if forcedID == "" {
		forcedID = r.URL.Query().Get("dashboard_id")
	}

	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, "", "", httpx.ErrUnableToParseReqData()
	}
	return raw, forcedID, mode, nil
}

// normalizeDashboardDocs converts a raw documentation export into the
// canonical payload without writing anything.
func (h *Handler) normalizeDashboardDocs(r *http.Request) (*httpx.Response, error) {
	raw, forcedID, _, errReq := readDashboardDocsBody(r)
	if errReq != nil {
		return nil, errReq
	}
	payload, err := dashdocs.NormalizePayload(raw, forcedID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{
			"success": true,
			"payload": payload,
			"counts":  payload.Summarize(),
		},
	}, nil
}

// importDashboardDocs normalizes and persists a documentation bundle.
func (h *Handler) importDashboardDocs(r *http.Request) (*httpx.Response, error) {
	raw, forcedID, mode, errReq := readDashboardDocsBody(r)
	if errReq != nil {
		return nil, errReq
	}
	payload, err := dashdocs.NormalizePayload(raw, forcedID)
	if err != nil {
		return nil, err
	}
	result, err := h.dashImporter.Import(r.Context(), payload, mode)
	if err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().
		Str("dashboard_id", result.DashboardID).
		Str("mode", string(result.Mode)).
		Int("views", result.Counts.Views).
		Msg("dashboard docs imported")
	return &httpx.Response{StatusCode: http.StatusOK, Response: result}, nil
}

// getDashboardDocs returns the active documentation bundle of a dashboard.
func (h *Handler) getDashboardDocs(r *http.Request) (*httpx.Response, error) {
	dashboardID := chi.URLParam(r, "dashboardId")
	payload, err := h.store.GetBundle(r.Context(), dashboardID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: payload}, nil
}

// deleteDashboardDocs removes the bundle and its payload history.
func (h *Handler) deleteDashboardDocs(r *http.Request) (*httpx.Response, error) {
	dashboardID := chi.URLParam(r, "dashboardId")
	if err := h.store.DeleteBundle(r.Context(), dashboardID); err != nil {
		return nil, err
	}
	if err := h.store.DeleteSnapshots(r.Context(), dashboardID); err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("dashboard_id", dashboardID).Msg("dashboard docs deleted")
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"success": true}}, nil
}
