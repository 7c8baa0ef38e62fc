// Package telemetry appends page-view events to the warehouse. Events are
// gated by an allow-list of trackable path prefixes and keyed by hashed
// session and IP values for pseudo-anonymity. Failures never propagate to the
// caller: observability must not affect user-facing behavior.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
)

var allowedPrefixes = []string{
	"/portal",
	"/projetos/",
	"/dashboards/",
	"/docs/",
	"/ferramentas/",
	"/pesquisas/",
	"/central-ajuda",
}

// Event is one page-view row ready for the warehouse.
type Event struct {
	EventID      string
	UserEmail    string
	EventType    string
	PagePath     string
	PageTitle    string
	Referrer     string
	SessionID    string
	UserAgent    string
	IPHash       string
	MetadataJSON string
}

// Overview aggregates a day-window of events for the admin area.
type Overview struct {
	Days        int        `json:"days"`
	Events      int64      `json:"events"`
	PageViews   int64      `json:"page_views"`
	UniqueUsers int64      `json:"unique_users"`
	UniquePages int64      `json:"unique_pages"`
	TopPages    []PageStat `json:"top_pages"`
	TopUsers    []UserStat `json:"top_users"`
}

type PageStat struct {
	PagePath    string `json:"page_path"`
	Views       int64  `json:"views"`
	UniqueUsers int64  `json:"unique_users"`
}

type UserStat struct {
	UserEmail   string `json:"user_email"`
	Views       int64  `json:"views"`
	UniquePages int64  `json:"unique_pages"`
}

type Store interface {
	InsertEvent(ctx context.Context, event *Event) apperrors.Error
	EventsOverview(ctx context.Context, from, to time.Time) (*Overview, apperrors.Error)
}

// EventInput is what the HTTP handler extracts from the request.
type EventInput struct {
	UserEmail    string
	EventType    string
	PagePath     string
	PageTitle    string
	Referrer     string
	SessionToken string
	UserAgent    string
	ClientIP     string
	MetadataJSON string
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record appends one event. Returns false when the event was dropped by the
// allow-list. Store failures are swallowed and only logged.
func (s *Service) Record(ctx context.Context, input EventInput) bool {
	pagePath := NormalizePagePath(input.PagePath)
	if !ShouldTrackPage(pagePath) {
		return false
	}

	eventType := input.EventType
	if eventType == "" {
		eventType = "page_view"
	}
	metadata := input.MetadataJSON
	if metadata == "" {
		metadata = "{}"
	}

	event := &Event{
		EventID:      uuid.NewString(),
		UserEmail:    strings.ToLower(input.UserEmail),
		EventType:    eventType,
		PagePath:     pagePath,
		PageTitle:    strings.TrimSpace(input.PageTitle),
		Referrer:     strings.TrimSpace(input.Referrer),
		SessionID:    hashIfPresent(input.SessionToken),
		UserAgent:    input.UserAgent,
		IPHash:       hashIfPresent(input.ClientIP),
		MetadataJSON: metadata,
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("page_path", pagePath).Msg("telemetry insert failed")
	}
	return true
}

// OverviewWindow clamps days to [1, 180], defaulting to 30, and queries the
// aggregate window ending now.
func (s *Service) OverviewWindow(ctx context.Context, days int) (*Overview, apperrors.Error) {
	days = NormalizeDays(days)
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	overview, err := s.store.EventsOverview(ctx, from, to)
	if err != nil {
		return nil, err
	}
	overview.Days = days
	return overview, nil
}

func NormalizeDays(days int) int {
	if days < 1 {
		return 30
	}
	if days > 180 {
		return 180
	}
	return days
}

func NormalizePagePath(pagePath string) string {
	value := strings.TrimSpace(pagePath)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "/") {
		return value
	}
	return "/" + value
}

// ShouldTrackPage reports whether the path is on the allow-list. Prefix
// matching is case-insensitive.
func ShouldTrackPage(pagePath string) bool {
	path := strings.ToLower(NormalizePagePath(pagePath))
	if path == "" {
		return false
	}
	for _, prefix := range allowedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ToSha256 hashes session tokens and client IPs before they are stored.
func ToSha256(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func hashIfPresent(value string) string {
	if value == "" {
		return ""
	}
	return ToSha256(value)
}
