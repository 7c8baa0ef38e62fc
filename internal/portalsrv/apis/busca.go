package apis

import (
	"net/http"

	"github.com/worlddata/portalsrv/internal/common/httpx"
)

// searchCatalog answers GET /busca?q=. Queries shorter than two characters
// return an empty list without touching the warehouse.
func (h *Handler) searchCatalog(r *http.Request) (*httpx.Response, error) {
	query := r.URL.Query().Get("q")
	results, err := h.searchSvc.Search(r.Context(), query)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: results}, nil
}
