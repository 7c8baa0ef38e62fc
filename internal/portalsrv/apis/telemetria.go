package apis

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/auth"
	"github.com/worlddata/portalsrv/internal/portalsrv/telemetry"
)

type telemetryEventRequest struct {
	EventType string          `json:"event_type"`
	PagePath  string          `json:"page_path"`
	PageTitle string          `json:"page_title"`
	Referrer  string          `json:"referrer"`
	Metadata  json.RawMessage `json:"metadata"`
}

// recordEvent ingests one page-view event. The response is success-shaped no
// matter what happens: unauthenticated senders get 202 and their event is
// dropped, everything else gets 200 with ignored set when the event was not
// stored.
func (h *Handler) recordEvent(w http.ResponseWriter, r *http.Request) {
	email, authenticated := auth.EmailFromRequest(r)
	if !authenticated {
		httpx.SendJsonRsp(r.Context(), w, http.StatusAccepted,
			map[string]any{"success": true, "ignored": true})
		return
	}

	var req telemetryEventRequest
	// malformed bodies are treated as an empty event and dropped by the
	// allow-list, never surfaced to the sender
	_ = json.NewDecoder(r.Body).Decode(&req)

	sessionToken := ""
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		sessionToken = cookie.Value
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = r.Referer()
	}

	tracked := h.telemetrySvc.Record(r.Context(), telemetry.EventInput{
		UserEmail:    email,
		EventType:    req.EventType,
		PagePath:     req.PagePath,
		PageTitle:    req.PageTitle,
		Referrer:     referrer,
		SessionToken: sessionToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     clientIP(r),
		MetadataJSON: string(req.Metadata),
	})

	rsp := map[string]any{"success": true}
	if !tracked {
		rsp["ignored"] = true
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

// telemetryOverview aggregates the last N days of events for the admin area.
func (h *Handler) telemetryOverview(r *http.Request) (*httpx.Response, error) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	overview, err := h.telemetrySvc.OverviewWindow(r.Context(), days)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: overview}, nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
