package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
	"github.com/worlddata/portalsrv/internal/portalsrv/readshape"
)

type itemRequest struct {
	Tipo               string   `json:"tipo" validate:"required,oneof=projeto dashboard documentacao ferramenta"`
	Nome               string   `json:"nome" validate:"required"`
	Descricao          string   `json:"descricao" validate:"required"`
	Link               *string  `json:"link"`
	Area               *string  `json:"area"`
	Status             *string  `json:"status"`
	ProximaAtualizacao *string  `json:"proxima_atualizacao"`
	Tecnologias        []string `json:"tecnologias"`
	DataInicio         *string  `json:"data_inicio"`
	Responsavel        *string  `json:"responsavel"`
	Cliente            *string  `json:"cliente"`
	Observacao         *string  `json:"observacao"`
}

func (req *itemRequest) toModel(id string) *models.CatalogItem {
	return &models.CatalogItem{
		ID:                 id,
		Tipo:               req.Tipo,
		Nome:               req.Nome,
		Descricao:          req.Descricao,
		Link:               req.Link,
		Area:               req.Area,
		Status:             req.Status,
		ProximaAtualizacao: req.ProximaAtualizacao,
		Tecnologias:        req.Tecnologias,
		DataInicio:         req.DataInicio,
		Responsavel:        req.Responsavel,
		Cliente:            req.Cliente,
		Observacao:         req.Observacao,
	}
}

func (h *Handler) listItens(r *http.Request) (*httpx.Response, error) {
	tipo := r.URL.Query().Get("tipo")
	items, err := h.store.ListItens(r.Context(), tipo)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, readshape.Item(&items[i]))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}

// listByTipo builds a handler for the per-type convenience routes.
func (h *Handler) listByTipo(tipo string) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		items, err := h.store.ListItens(r.Context(), tipo)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for i := range items {
			out = append(out, readshape.Item(&items[i]))
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
	}
}

func (h *Handler) getItem(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "itemId")
	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: readshape.Item(item)}, nil
}

func (h *Handler) createItem(r *http.Request) (*httpx.Response, error) {
	var req itemRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(&req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	item := req.toModel(uuid.NewString())
	if err := h.store.CreateItem(r.Context(), item); err != nil {
		return nil, err
	}
	created, err := h.store.GetItem(r.Context(), item.ID)
	if err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("id", item.ID).Str("tipo", item.Tipo).Msg("catalog item created")
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/itens/" + item.ID,
		Response:   readshape.Item(created),
	}, nil
}

func (h *Handler) updateItem(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "itemId")
	var req itemRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(&req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	if err := h.store.UpdateItem(r.Context(), req.toModel(id)); err != nil {
		return nil, err
	}
	updated, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: readshape.Item(updated)}, nil
}

func (h *Handler) deleteItem(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "itemId")
	tipo := r.URL.Query().Get("tipo")
	if tipo == "" {
		return nil, httpx.ErrInvalidRequest("parametro tipo e obrigatorio")
	}
	if err := h.store.DeleteItem(r.Context(), id, tipo); err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("id", id).Str("tipo", tipo).Msg("catalog item deleted")
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"success": true}}, nil
}
