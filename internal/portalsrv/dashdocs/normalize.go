package dashdocs

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/slug"
)

// ErrMissingDashboardID is the only normalization failure: everything else in
// the payload is defaulted, never rejected.
var ErrMissingDashboardID apperrors.Error = apperrors.New("dashboard_id e obrigatorio").SetStatusCode(http.StatusBadRequest)

// The payloads originate from loosely structured document extraction and the
// key names drifted over time. Each concept therefore accepts a list of
// historical aliases; the first present one wins.
var (
	viewListKeys     = []string{"views", "tabs", "guias", "sections", "paginas"}
	insightListKeys  = []string{"insights", "items", "analises", "analysis", "insights_list"}
	glossaryListKeys = []string{"glossary_fields", "glossary", "dicionario", "fields", "campos"}
)

// NormalizePayload converts an arbitrarily shaped input object into a Payload
// with every field explicitly defaulted. A forcedDashboardID (for example from
// the URL path) takes precedence over an in-payload dashboard_id.
func NormalizePayload(rawBody map[string]any, forcedDashboardID string) (*Payload, apperrors.Error) {
	raw := rawBody
	if raw == nil {
		raw = map[string]any{}
	}

	dashboardID := strings.TrimSpace(forcedDashboardID)
	if dashboardID == "" {
		dashboardID = strings.TrimSpace(toString(raw["dashboard_id"]))
	}
	if dashboardID == "" {
		return nil, ErrMissingDashboardID
	}

	viewsInput := firstList(raw, viewListKeys)
	views := make([]View, 0, len(viewsInput))
	for index, rawView := range viewsInput {
		view := asObject(rawView)
		title := pickString(view, "title", "titulo", "nome", "name", "tab_name", "guia")

		idCandidate := pickString(view, "view_id", "tab_id", "guia_id")
		if idCandidate == "" {
			idCandidate = title
		}
		fallbackID := fmt.Sprintf("view_%d", index+1)

		viewTitle := title
		if viewTitle == "" {
			viewTitle = fmt.Sprintf("View %d", index+1)
		}

		status := strings.ToLower(strings.TrimSpace(toString(view["status"])))
		if status == "" {
			status = "ativo"
		}

		views = append(views, View{
			ViewID:         slug.MakeOr(idCandidate, fallbackID),
			Title:          viewTitle,
			ViewType:       normalizeViewType(view["view_type"]),
			Source:         pickStringPtr(view["source"], raw["source"]),
			Version:        pickStringPtr(view["version"], raw["version"]),
			GeneratedAt:    pickStringPtr(view["generated_at"], raw["generated_at"]),
			SortOrder:      toInt(view["sort_order"], index),
			Status:         status,
			MetricOwner:    pickStringPtr(view["metric_owner"], view["owner"]),
			DataSource:     pickStringPtr(view["data_source"], view["fonte_dados"]),
			Insights:       normalizeInsights(firstList(view, insightListKeys)),
			GlossaryFields: normalizeGlossary(firstList(view, glossaryListKeys)),
		})
	}

	version := toString(raw["version"])
	if version == "" {
		version = "1.0.0"
	}
	source := toString(raw["source"])
	if source == "" {
		source = "Dashboard docs import"
	}

	return &Payload{
		Version:     version,
		GeneratedAt: normalizeGeneratedAt(raw["generated_at"]),
		Source:      source,
		DashboardID: dashboardID,
		Views:       views,
	}, nil
}

func normalizeInsights(rawInsights []any) []Insight {
	insights := make([]Insight, 0, len(rawInsights))
	for index, raw := range rawInsights {
		insight := asObject(raw)
		title := pickString(insight, "title", "titulo", "name", "nome", "insight")
		description := pickString(insight, "description", "descricao", "texto", "resumo")

		fallbackID := fmt.Sprintf("insight_%d", index+1)
		idCandidate := strings.TrimSpace(toString(insight["insight_id"]))
		if idCandidate == "" {
			idCandidate = title
		}

		insightTitle := title
		if insightTitle == "" {
			insightTitle = fmt.Sprintf("Insight %d", index+1)
		}

		notes := insight["notes"]
		if notes == nil {
			notes = insight["observacoes"]
		}
		if notes == nil {
			notes = insight["notas"]
		}

		insights = append(insights, Insight{
			InsightID:   slug.MakeOr(idCandidate, fallbackID),
			Title:       insightTitle,
			Description: description,
			Notes:       toStringArray(notes),
			Tags:        toStringArray(insight["tags"]),
			SortOrder:   toInt(insight["sort_order"], index),
		})
	}
	return insights
}

func normalizeGlossary(rawGlossary []any) []GlossaryField {
	fields := make([]GlossaryField, 0, len(rawGlossary))
	for index, raw := range rawGlossary {
		field := asObject(raw)
		name := pickString(field, "name", "nome", "campo", "metrica")
		description := pickString(field, "description", "descricao", "definicao")

		fallbackID := fmt.Sprintf("field_%d", index+1)
		idCandidate := strings.TrimSpace(toString(field["field_id"]))
		if idCandidate == "" {
			idCandidate = name
		}

		fieldName := name
		if fieldName == "" {
			fieldName = fmt.Sprintf("Campo %d", index+1)
		}

		fields = append(fields, GlossaryField{
			FieldID:     slug.MakeOr(idCandidate, fallbackID),
			Name:        fieldName,
			Description: description,
			Formula:     pickStringPtr(field["formula"], field["calculo"]),
			Example:     pickStringPtr(field["example"], field["exemplo"]),
			Unit:        pickStringPtr(field["unit"], field["unidade"]),
			Tags:        toStringArray(field["tags"]),
			SortOrder:   toInt(field["sort_order"], index),
		})
	}
	return fields
}

func normalizeViewType(value any) ViewType {
	switch ViewType(strings.ToLower(strings.TrimSpace(toString(value)))) {
	case ViewTypeAnalysis:
		return ViewTypeAnalysis
	case ViewTypeGlossary:
		return ViewTypeGlossary
	case ViewTypeMixed:
		return ViewTypeMixed
	}
	return ViewTypeMixed
}

// normalizeGeneratedAt parses timestamps permissively. Anything unparseable
// falls back to the current time rather than an error.
func normalizeGeneratedAt(value any) string {
	text := strings.TrimSpace(toString(value))
	if text != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, text); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func asObject(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func firstList(obj map[string]any, keys []string) []any {
	for _, key := range keys {
		if list, ok := obj[key].([]any); ok {
			return list
		}
	}
	return nil
}

func pickString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if text := strings.TrimSpace(toString(obj[key])); text != "" {
			return text
		}
	}
	return ""
}

// pickStringPtr returns the first candidate with a non-empty trimmed string
// representation, or nil. Empty strings collapse to absent, not "".
func pickStringPtr(candidates ...any) *string {
	for _, candidate := range candidates {
		if text := strings.TrimSpace(toString(candidate)); text != "" {
			return &text
		}
	}
	return nil
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toStringArray accepts a native list or a comma-separated string. Any other
// shape yields an empty list.
func toStringArray(value any) []string {
	switch v := value.(type) {
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(toString(item)); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return []string{}
}

// toInt coerces ints, floats and numeric strings, truncating toward zero.
func toInt(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fallback
		}
		return int(math.Trunc(v))
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		return int(math.Trunc(parsed))
	}
	return fallback
}
