// Package search implements the portal-wide lookup: every entity table is
// fetched in full per query and scored by naive substring containment. There
// is no persistent index; this is acceptable only because the catalog is
// small.
package search

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
)

const (
	// MinQueryLen short-circuits to an empty result set.
	MinQueryLen = 2
	maxResults  = 20

	occurrenceWeight = 2
	nameBonus        = 5
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is one row of any entity table, flattened to plain values.
type Document struct {
	Tipo   string
	Fields map[string]any
}

// Store fetches every row of every searchable table.
type Store interface {
	FetchAllDocuments(ctx context.Context) ([]Document, apperrors.Error)
}

// Result is one scored hit.
type Result struct {
	Tipo  string         `json:"tipo"`
	Item  map[string]any `json:"item"`
	Score int            `json:"score"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Search fetches all documents, filters by case-insensitive substring
// containment against each serialized row and returns the top hits.
func (s *Service) Search(ctx context.Context, query string) ([]Result, apperrors.Error) {
	if utf8.RuneCountInString(query) < MinQueryLen {
		return []Result{}, nil
	}

	docs, err := s.store.FetchAllDocuments(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := make([]Result, 0)
	for _, doc := range docs {
		item := doc.Fields
		if item == nil {
			item = map[string]any{}
		}
		item["tipo"] = doc.Tipo

		score := Score(item, q)
		if score == 0 {
			continue
		}
		results = append(results, Result{Tipo: doc.Tipo, Item: item, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	log.Ctx(ctx).Debug().Str("query", query).Int("hits", len(results)).Msg("search executed")
	return results, nil
}

// Score serializes the row and counts occurrences of the query, with a flat
// bonus when the primary name field contains it. The constants are placeholder
// tuning, not a contract.
func Score(item map[string]any, loweredQuery string) int {
	serialized, err := json.Marshal(item)
	if err != nil {
		return 0
	}
	allText := strings.ToLower(string(serialized))

	matches := strings.Count(allText, loweredQuery)
	if matches == 0 {
		return 0
	}
	score := matches * occurrenceWeight

	name := primaryName(item)
	if name != "" && strings.Contains(strings.ToLower(name), loweredQuery) {
		score += nameBonus
	}
	return score
}

func primaryName(item map[string]any) string {
	for _, key := range []string{"nome", "Nome", "titulo", "Titulo"} {
		if value, ok := item[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
