package pesquisas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
)

// Mode selects the import semantics for a CSV batch.
type Mode string

const (
	ModeUpsert  Mode = "upsert"
	ModeReplace Mode = "replace"
)

// SanitizeMode defaults to upsert, the non-destructive option.
func SanitizeMode(value string) Mode {
	if strings.ToLower(strings.TrimSpace(value)) == string(ModeReplace) {
		return ModeReplace
	}
	return ModeUpsert
}

const maxReportedErrors = 50

var (
	ErrEmptyCSV    apperrors.Error = apperrors.New("CSV vazio ou invalido").SetStatusCode(http.StatusBadRequest)
	ErrHeaderOnly  apperrors.Error = apperrors.New("CSV precisa ter cabecalho e pelo menos uma linha").SetStatusCode(http.StatusBadRequest)
	ErrNoValidRows apperrors.Error = apperrors.New("nenhuma linha valida para importar").SetStatusCode(http.StatusBadRequest)
)

// Row is one validated research entry ready for the warehouse. Data and
// DataInicio hold canonical ISO date strings.
type Row struct {
	ID          string
	Titulo      string
	Fonte       string
	Link        *string
	Data        string
	Conteudo    string
	Tema        string
	DataInicio  *string
	Responsavel *string
	Cliente     *string
	Observacao  *string
}

// NaturalKey joins the de-duplication fields of a research entry. Two rows
// with the same natural key are the same logical entry regardless of id.
func NaturalKey(titulo, fonte, data, tema string) string {
	return titulo + "|" + fonte + "|" + data + "|" + tema
}

// DeterministicID derives a stable identifier from the natural key, so that
// re-importing the same CSV updates rather than duplicates rows even without
// a client-supplied id.
func DeterministicID(naturalKey string) string {
	sum := sha256.Sum256([]byte(naturalKey))
	return hex.EncodeToString(sum[:])[:32]
}

// NaturalKeyHash is the full digest of the natural key, used to match rows
// already present in the warehouse.
func NaturalKeyHash(naturalKey string) string {
	sum := sha256.Sum256([]byte(naturalKey))
	return hex.EncodeToString(sum[:])
}

// ParseResult carries the validated rows of a CSV batch together with the
// per-row rejections. Row errors never abort the batch.
type ParseResult struct {
	Total  int
	Rows   []Row
	Errors []string
}

// ParseCSV turns a raw delimited-text blob into validated rows. Returns a
// batch-level error only for empty or header-only input.
func ParseCSV(csvText string) (*ParseResult, apperrors.Error) {
	if strings.TrimSpace(csvText) == "" {
		return nil, ErrEmptyCSV
	}

	cleaned := stripBOM(csvText)
	firstLine := cleaned
	if idx := strings.IndexAny(cleaned, "\r\n"); idx >= 0 {
		firstLine = cleaned[:idx]
	}
	delimiter := DetectDelimiter(firstLine)
	parsed := ParseDelimited(cleaned, delimiter)

	if len(parsed) < 2 {
		return nil, ErrHeaderOnly
	}

	headerIndex := map[string]int{}
	for index, cell := range parsed[0] {
		headerIndex[NormalizeHeader(cell)] = index
	}

	result := &ParseResult{}
	for i := 1; i < len(parsed); i++ {
		rawRow := parsed[i]
		if isBlankRow(rawRow) {
			continue
		}
		result.Total++

		get := func(key string) string {
			idx, ok := headerIndex[key]
			if !ok || idx >= len(rawRow) {
				return ""
			}
			return strings.TrimSpace(rawRow[idx])
		}

		titulo := get("titulo")
		fonte := get("fonte")
		link := get("link")
		rawData := get("data")
		data, dataOK := NormalizeDate(rawData)
		conteudo := get("conteudo")
		if conteudo == "" {
			conteudo = get("conteudo_da_pesquisa")
		}
		if conteudo == "" {
			conteudo = get("conteudo_pesquisa")
		}
		tema := get("tema")
		id := get("id")

		var missing []string
		if titulo == "" {
			missing = append(missing, "titulo")
		}
		if fonte == "" {
			missing = append(missing, "fonte")
		}
		if !dataOK {
			missing = append(missing, "data")
		}
		if conteudo == "" {
			missing = append(missing, "conteudo")
		}
		if tema == "" {
			missing = append(missing, "tema")
		}

		if len(missing) > 0 {
			// line numbers are 1-indexed and include the header, matching
			// what the operator sees in a spreadsheet
			msg := fmt.Sprintf("Linha %d: campos obrigatorios faltando (%s).", i+1, strings.Join(missing, ", "))
			if !dataOK && rawData != "" {
				msg += fmt.Sprintf(` (valor recebido: "%s")`, rawData)
			}
			result.Errors = append(result.Errors, msg)
			continue
		}

		if id == "" {
			id = DeterministicID(NaturalKey(titulo, fonte, data, tema))
		}

		var dataInicio *string
		if di, ok := NormalizeDate(get("data_inicio")); ok {
			dataInicio = &di
		}

		result.Rows = append(result.Rows, Row{
			ID:          id,
			Titulo:      titulo,
			Fonte:       fonte,
			Link:        optional(link),
			Data:        data,
			Conteudo:    conteudo,
			Tema:        tema,
			DataInicio:  dataInicio,
			Responsavel: optional(get("responsavel")),
			Cliente:     optional(get("cliente")),
			Observacao:  optional(get("observacao")),
		})
	}

	return result, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Store is the warehouse surface the import pipeline needs.
type Store interface {
	// CountExistingByNaturalKey counts rows already in the table whose
	// natural-key hash is in hashes.
	CountExistingByNaturalKey(ctx context.Context, hashes []string) (int, apperrors.Error)
	// BackupResearchTable snapshots the whole table into a new table named
	// with the given suffix and returns the backup table name.
	BackupResearchTable(ctx context.Context, suffix string) (string, apperrors.Error)
	TruncateResearch(ctx context.Context) apperrors.Error
	InsertImportedRow(ctx context.Context, row *Row) apperrors.Error
	UpsertImportedRow(ctx context.Context, row *Row) apperrors.Error
}

// ImportSummary is returned to the admin UI after a batch.
type ImportSummary struct {
	Success     bool     `json:"success"`
	Mode        Mode     `json:"mode"`
	Total       int      `json:"total"`
	Valid       int      `json:"valid"`
	Skipped     int      `json:"skipped"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
	Errors      []string `json:"errors"`
	BackupTable string   `json:"backup_table,omitempty"`
}

type Importer struct {
	store Store
	now   func() time.Time
}

func NewImporter(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// Import applies a parsed batch. Replace snapshots the whole table into a
// timestamp-suffixed backup, truncates, then inserts every valid row; a
// failure after the truncate leaves the table partially repopulated and the
// backup is the only recovery path. Upsert merges per row on the natural key.
func (im *Importer) Import(ctx context.Context, parsed *ParseResult, mode Mode) (*ImportSummary, apperrors.Error) {
	if len(parsed.Rows) == 0 {
		return nil, ErrNoValidRows
	}

	summary := &ImportSummary{
		Success: true,
		Mode:    mode,
		Total:   parsed.Total,
		Valid:   len(parsed.Rows),
		Skipped: len(parsed.Errors),
		Errors:  truncateErrors(parsed.Errors),
	}

	if mode == ModeReplace {
		suffix := im.now().UTC().Format("20060102_150405")
		backupTable, err := im.store.BackupResearchTable(ctx, suffix)
		if err != nil {
			return nil, err
		}
		if err := im.store.TruncateResearch(ctx); err != nil {
			return nil, err
		}
		for i := range parsed.Rows {
			if err := im.store.InsertImportedRow(ctx, &parsed.Rows[i]); err != nil {
				return nil, err
			}
		}
		summary.Inserted = len(parsed.Rows)
		summary.BackupTable = backupTable
		return summary, nil
	}

	// classification is queried once up front; inherently racy under
	// concurrent importers, which the system does not guard against
	hashes := make([]string, 0, len(parsed.Rows))
	for i := range parsed.Rows {
		row := &parsed.Rows[i]
		hashes = append(hashes, NaturalKeyHash(NaturalKey(row.Titulo, row.Fonte, row.Data, row.Tema)))
	}
	existing, err := im.store.CountExistingByNaturalKey(ctx, hashes)
	if err != nil {
		return nil, err
	}

	for i := range parsed.Rows {
		if err := im.store.UpsertImportedRow(ctx, &parsed.Rows[i]); err != nil {
			return nil, err
		}
	}

	if existing > len(parsed.Rows) {
		log.Ctx(ctx).Warn().Int("existing", existing).Int("rows", len(parsed.Rows)).Msg("existing-row count exceeds batch size")
		existing = len(parsed.Rows)
	}
	summary.Inserted = len(parsed.Rows) - existing
	summary.Updated = existing
	return summary, nil
}

func truncateErrors(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	if len(errs) > maxReportedErrors {
		return errs[:maxReportedErrors]
	}
	return errs
}
