// Package readshape converts warehouse rows into the flat JSON shape the
// portal frontend consumes. The underlying tables changed field casing over
// time, so reads coalesce the historical variants into one canonical key and
// fill the defaults the frontend relies on.
package readshape

import (
	"strings"
	"time"

	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
)

const defaultArea = "Geral"

// canonicalKeys maps every historical casing of a field name to the key the
// API emits today.
var canonicalKeys = map[string]string{
	"Nome":        "nome",
	"Descricao":   "descricao",
	"Area":        "area",
	"Link":        "link",
	"Status":      "status",
	"Titulo":      "titulo",
	"Fonte":       "fonte",
	"Tema":        "tema",
	"Responsavel": "responsavel",
	"Cliente":     "cliente",
}

// Canonical folds historical field casings of a free-form row into the
// canonical lowercase keys. When both casings are present the canonical one
// wins.
func Canonical(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		canonical, ok := canonicalKeys[key]
		if !ok {
			canonical = key
		}
		if _, exists := out[canonical]; exists && canonical != key {
			continue
		}
		out[canonical] = value
	}
	return out
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func stringOrNil(value *string) any {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return *value
}

// Item flattens a catalog item row. Absent optional fields become the
// frontend defaults: area falls back to "Geral", display text to the empty
// string, governance metadata to null.
func Item(item *models.CatalogItem) map[string]any {
	area := stringOrEmpty(item.Area)
	if strings.TrimSpace(area) == "" {
		area = defaultArea
	}
	tecnologias := []string(item.Tecnologias)
	if tecnologias == nil {
		tecnologias = []string{}
	}
	return map[string]any{
		"id":                  item.ID,
		"tipo":                item.Tipo,
		"nome":                item.Nome,
		"descricao":           item.Descricao,
		"link":                stringOrEmpty(item.Link),
		"area":                area,
		"status":              stringOrNil(item.Status),
		"proxima_atualizacao": stringOrNil(item.ProximaAtualizacao),
		"tecnologias":         tecnologias,
		"data_inicio":         stringOrNil(item.DataInicio),
		"ultima_atualizacao":  item.UltimaAtualizacao.UTC().Format(time.RFC3339),
		"responsavel":         stringOrNil(item.Responsavel),
		"cliente":             stringOrNil(item.Cliente),
		"observacao":          stringOrNil(item.Observacao),
	}
}

// Pesquisa flattens a research entry row.
func Pesquisa(entry *models.Pesquisa) map[string]any {
	return map[string]any{
		"id":          entry.ID,
		"titulo":      entry.Titulo,
		"fonte":       entry.Fonte,
		"link":        stringOrNil(entry.Link),
		"data":        entry.Data,
		"conteudo":    entry.Conteudo,
		"tema":        entry.Tema,
		"data_inicio": stringOrNil(entry.DataInicio),
		"responsavel": stringOrNil(entry.Responsavel),
		"cliente":     stringOrNil(entry.Cliente),
		"observacao":  stringOrNil(entry.Observacao),
	}
}
