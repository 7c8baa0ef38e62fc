package apis

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/db/models"
	"github.com/worlddata/portalsrv/internal/portalsrv/pesquisas"
	"github.com/worlddata/portalsrv/internal/portalsrv/readshape"
)

type pesquisaRequest struct {
	Titulo      string  `json:"titulo" validate:"required"`
	Fonte       string  `json:"fonte" validate:"required"`
	Link        *string `json:"link"`
	Data        string  `json:"data" validate:"required"`
	Conteudo    string  `json:"conteudo" validate:"required"`
	Tema        string  `json:"tema" validate:"required"`
	DataInicio  *string `json:"data_inicio"`
	Responsavel *string `json:"responsavel"`
	Cliente     *string `json:"cliente"`
	Observacao  *string `json:"observacao"`
}

func (req *pesquisaRequest) toModel(id string) (*models.Pesquisa, error) {
	data, ok := pesquisas.NormalizeDate(req.Data)
	if !ok {
		return nil, httpx.ErrInvalidRequest("data invalida: " + req.Data)
	}
	var dataInicio *string
	if req.DataInicio != nil {
		normalized, ok := pesquisas.NormalizeDate(*req.DataInicio)
		if !ok {
			return nil, httpx.ErrInvalidRequest("data_inicio invalida: " + *req.DataInicio)
		}
		dataInicio = &normalized
	}
	return &models.Pesquisa{
		ID:          id,
		Titulo:      req.Titulo,
		Fonte:       req.Fonte,
		Link:        req.Link,
		Data:        data,
		Conteudo:    req.Conteudo,
		Tema:        req.Tema,
		DataInicio:  dataInicio,
		Responsavel: req.Responsavel,
		Cliente:     req.Cliente,
		Observacao:  req.Observacao,
	}, nil
}

func (h *Handler) listPesquisas(r *http.Request) (*httpx.Response, error) {
	entries, err := h.store.ListPesquisas(r.Context())
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(entries))
	for i := range entries {
		out = append(out, readshape.Pesquisa(&entries[i]))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}

func (h *Handler) createPesquisa(r *http.Request) (*httpx.Response, error) {
	var req pesquisaRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(&req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	entry, errReq := req.toModel("")
	if errReq != nil {
		return nil, errReq
	}
	entry.ID = pesquisas.DeterministicID(
		pesquisas.NaturalKey(entry.Titulo, entry.Fonte, entry.Data, entry.Tema))
	if err := h.store.CreatePesquisa(r.Context(), entry); err != nil {
		return nil, err
	}
	created, err := h.store.GetPesquisa(r.Context(), entry.ID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/pesquisas/" + entry.ID,
		Response:   readshape.Pesquisa(created),
	}, nil
}

func (h *Handler) updatePesquisa(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "pesquisaId")
	var req pesquisaRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(&req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	entry, errReq := req.toModel(id)
	if errReq != nil {
		return nil, errReq
	}
	if err := h.store.UpdatePesquisa(r.Context(), entry); err != nil {
		return nil, err
	}
	updated, err := h.store.GetPesquisa(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: readshape.Pesquisa(updated)}, nil
}

func (h *Handler) deletePesquisa(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "pesquisaId")
	if err := h.store.DeletePesquisa(r.Context(), id); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"success": true}}, nil
}

// importPesquisas runs the CSV batch import. The body is JSON with the raw
// delimited text under csv (csv_text and csvText are accepted) and an
// optional mode.
func (h *Handler) importPesquisas(r *http.Request) (*httpx.Response, error) {
	body, errIo := io.ReadAll(r.Body)
	if errIo != nil {
		return nil, httpx.ErrUnableToReadRequest()
	}
	if !gjson.ValidBytes(body) {
		return nil, httpx.ErrUnableToParseReqData()
	}

	csvText := ""
	for _, key := range []string{"csv", "csv_text", "csvText"} {
		if value := gjson.GetBytes(body, key); value.Exists() {
			csvText = value.String()
			break
		}
	}
	mode := pesquisas.SanitizeMode(gjson.GetBytes(body, "mode").String())

	parsed, err := pesquisas.ParseCSV(csvText)
	if err != nil {
		return nil, err
	}
	summary, err := h.researchImporter.Import(r.Context(), parsed, mode)
	if err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().
		Str("mode", string(mode)).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("research import finished")
	return &httpx.Response{StatusCode: http.StatusOK, Response: summary}, nil
}
