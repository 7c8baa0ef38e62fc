package dashdocs

// ViewType classifies what a documentation view carries.
type ViewType string

const (
	ViewTypeAnalysis ViewType = "analysis"
	ViewTypeGlossary ViewType = "glossary"
	ViewTypeMixed    ViewType = "mixed"
)

// Insight is a single analysis note inside a view.
type Insight struct {
	InsightID   string   `json:"insight_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Notes       []string `json:"notes"`
	Tags        []string `json:"tags"`
	SortOrder   int      `json:"sort_order"`
}

// GlossaryField documents one metric or column of a dashboard view.
type GlossaryField struct {
	FieldID     string   `json:"field_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Formula     *string  `json:"formula"`
	Example     *string  `json:"example"`
	Unit        *string  `json:"unit"`
	Tags        []string `json:"tags"`
	SortOrder   int      `json:"sort_order"`
}

// View is one documented tab of a dashboard, together with its insights and
// glossary fields. The three are always loaded and replaced as a unit scoped
// to the dashboard id.
type View struct {
	ViewID         string          `json:"view_id"`
	Title          string          `json:"title"`
	ViewType       ViewType        `json:"view_type"`
	Source         *string         `json:"source"`
	Version        *string         `json:"version"`
	GeneratedAt    *string         `json:"generated_at"`
	SortOrder      int             `json:"sort_order"`
	Status         string          `json:"status"`
	MetricOwner    *string         `json:"metric_owner"`
	DataSource     *string         `json:"data_source"`
	Insights       []Insight       `json:"insights"`
	GlossaryFields []GlossaryField `json:"glossary_fields"`
}

// Payload is the canonical shape of a dashboard documentation bundle.
type Payload struct {
	Version     string `json:"version"`
	GeneratedAt string `json:"generated_at"`
	Source      string `json:"source"`
	DashboardID string `json:"dashboard_id"`
	Views       []View `json:"views"`
}

// Summary counts the entities of a normalized payload.
type Summary struct {
	Views          int `json:"views"`
	Insights       int `json:"insights"`
	GlossaryFields int `json:"glossary_fields"`
}

// Summarize tallies the payload contents for display.
func (p *Payload) Summarize() Summary {
	s := Summary{Views: len(p.Views)}
	for _, view := range p.Views {
		s.Insights += len(view.Insights)
		s.GlossaryFields += len(view.GlossaryFields)
	}
	return s
}
