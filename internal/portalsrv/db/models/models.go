// Package models holds the row types of the portal warehouse tables.
package models

import (
	"time"

	"github.com/lib/pq"
)

// CatalogItem is one row of itens_portal. All four content types share the
// table; Tipo decides which optional fields are meaningful.
type CatalogItem struct {
	ID                 string
	Tipo               string
	Nome               string
	Descricao          string
	Link               *string
	Area               *string
	Status             *string
	ProximaAtualizacao *string
	Tecnologias        pq.StringArray
	DataInicio         *string
	UltimaAtualizacao  time.Time
	Responsavel        *string
	Cliente            *string
	Observacao         *string
	CriadoEm           time.Time
}

// Pesquisa is one row of the pesquisas table. NaturalKeyHash is the full
// sha256 hex of the (titulo, fonte, data, tema) key and carries the upsert
// uniqueness constraint.
type Pesquisa struct {
	ID             string
	Titulo         string
	Fonte          string
	Link           *string
	Data           string
	Conteudo       string
	Tema           string
	DataInicio     *string
	Responsavel    *string
	Cliente        *string
	Observacao     *string
	NaturalKeyHash string
	CriadoEm       time.Time
	AtualizadoEm   time.Time
}
