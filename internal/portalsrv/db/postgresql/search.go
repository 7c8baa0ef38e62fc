package postgresql

import (
	"context"

	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/portalsrv/readshape"
	"github.com/worlddata/portalsrv/internal/portalsrv/search"
)

var searchTipos = []string{"projeto", "dashboard", "documentacao", "ferramenta"}

// FetchAllDocuments loads every row of the four catalog views and the
// research table, flattened to the read shape. The search service scans the
// whole set per query; the catalog is small enough that no index is kept.
func (ws *WarehouseStore) FetchAllDocuments(ctx context.Context) ([]search.Document, apperrors.Error) {
	docs := []search.Document{}
	for _, tipo := range searchTipos {
		items, err := ws.ListItens(ctx, tipo)
		if err != nil {
			return nil, err
		}
		for i := range items {
			docs = append(docs, search.Document{
				Tipo:   tipo,
				Fields: readshape.Item(&items[i]),
			})
		}
	}

	entries, err := ws.ListPesquisas(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		docs = append(docs, search.Document{
			Tipo:   "pesquisa",
			Fields: readshape.Pesquisa(&entries[i]),
		})
	}
	return docs, nil
}
