package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPesquisaBody() map[string]any {
	return map[string]any{
		"titulo":   "Pesquisa NPS Q1",
		"fonte":    "Google Forms",
		"data":     "15/01/2026",
		"conteudo": "Resultado consolidado da pesquisa",
		"tema":     "satisfacao",
	}
}

func TestCreatePesquisaNormalizesDate(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rr := executeTestRequest(t, s, withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas", validPesquisaBody())))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created map[string]any
	decodeBody(t, rr, &created)
	assert.Equal(t, "2026-01-15", created["data"], "BR date is stored as ISO")
	id := created["id"].(string)
	assert.Len(t, id, 32, "id is the truncated natural-key hash")

	rr = executeTestRequest(t, s, httptest.NewRequest(http.MethodGet, "/pesquisas", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []map[string]any
	decodeBody(t, rr, &listed)
	require.Len(t, listed, 1)
}

func TestCreatePesquisaRejectsBadDate(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	body := validPesquisaBody()
	body["data"] = "quinta-feira"
	rr := executeTestRequest(t, s, withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas", body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

const importCSV = "titulo;fonte;data;conteudo;tema\n" +
	"Pesquisa NPS Q1;Google Forms;15/01/2026;Resultado consolidado;satisfacao\n" +
	"Pesquisa Mercado;Institucional;2026-02-01;Analise de mercado;mercado\n" +
	";;;;\n" +
	"Sem Conteudo;Forms;2026-02-02;;tema\n"

func TestImportPesquisasUpsert(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas/import",
		map[string]any{"csv": importCSV, "mode": "upsert"}))
	rr := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var summary map[string]any
	decodeBody(t, rr, &summary)
	assert.Equal(t, true, summary["success"])
	assert.EqualValues(t, 3, summary["total"], "blank row is not counted")
	assert.EqualValues(t, 2, summary["valid"])
	assert.EqualValues(t, 1, summary["skipped"])
	assert.EqualValues(t, 2, summary["inserted"])
	assert.EqualValues(t, 0, summary["updated"])
	errors := summary["errors"].([]any)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].(string), "Linha 5", "row errors use the physical line number")

	// identical re-import classifies every row as updated
	req = withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas/import",
		map[string]any{"csv": importCSV, "mode": "upsert"}))
	rr = executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &summary)
	assert.EqualValues(t, 0, summary["inserted"])
	assert.EqualValues(t, 2, summary["updated"])
}

func TestImportPesquisasReplace(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	seed := validPesquisaBody()
	rr := executeTestRequest(t, s, withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas", seed)))
	require.Equal(t, http.StatusCreated, rr.Code)

	csv := "titulo,fonte,data,conteudo,tema\nNova Pesquisa,Forms,2026-03-01,conteudo novo,tema novo\n"
	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas/import",
		map[string]any{"csv": csv, "mode": "replace"}))
	rr = executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var summary map[string]any
	decodeBody(t, rr, &summary)
	backup, _ := summary["backup_table"].(string)
	assert.True(t, strings.HasPrefix(backup, "pesquisas_backup_"), "replace reports the backup table")
	assert.True(t, store.truncated)
	require.Len(t, store.research, 1, "replace drops previous rows")
}

func TestImportPesquisasEmptyCSV(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/admin/pesquisas/import",
		map[string]any{"csv": "", "mode": "upsert"}))
	rr := executeTestRequest(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
