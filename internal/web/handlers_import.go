package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// handleImport runs a bulk TSV import. The body is either the raw text or a
// multipart form with a "file" field. console_id and region_id query
// parameters apply to every row.
//
// Per-row failures are reported in the result with a 200; only input that
// cannot be read as tab-separated text fails the request.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, opts, ok := s.readImport(w, r)
	if !ok {
		return
	}

	result, err := s.service.Import(r.Context(), raw, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newImportResponse(result))
}

// importResponse is the wire shape of an import: accepted is a count, and
// the created games are referenced by id only.
type importResponse struct {
	ImportID    uuid.UUID          `json:"import_id"`
	Accepted    int                `json:"accepted"`
	AcceptedIDs []int64            `json:"accepted_ids"`
	Rejected    []core.RejectedRow `json:"rejected"`
	Aborted     string             `json:"aborted,omitempty"`
}

func newImportResponse(result *core.ImportResult) importResponse {
	resp := importResponse{
		ImportID:    result.ImportID,
		Accepted:    len(result.Accepted),
		AcceptedIDs: make([]int64, 0, len(result.Accepted)),
		Rejected:    result.Rejected,
		Aborted:     result.Aborted,
	}
	for _, g := range result.Accepted {
		resp.AcceptedIDs = append(resp.AcceptedIDs, g.ID)
	}
	if resp.Rejected == nil {
		resp.Rejected = []core.RejectedRow{}
	}
	return resp
}

// handleImportPreview reports what an import would do without writing.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	raw, opts, ok := s.readImport(w, r)
	if !ok {
		return
	}

	preview, err := s.service.PreviewImport(r.Context(), raw, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ImportStatus())
}

// readImport extracts the import text and options. On failure it has
// already written the response.
func (s *Server) readImport(w http.ResponseWriter, r *http.Request) (string, core.ImportOptions, bool) {
	var opts core.ImportOptions
	var err error
	if opts.ConsoleID, err = queryID(r, "console_id"); err != nil {
		s.respondError(w, r, err)
		return "", opts, false
	}
	if opts.RegionID, err = queryID(r, "region_id"); err != nil {
		s.respondError(w, r, err)
		return "", opts, false
	}

	maxSize := s.cfg.Import.MaxBytes
	if maxSize <= 0 {
		maxSize = core.DefaultMaxImportBytes
	}

	body, err := readImportBody(w, r, maxSize)
	if err != nil {
		s.respondError(w, r, err)
		return "", opts, false
	}
	return body, opts, true
}

// readImportBody reads the raw body, or the "file" part of a multipart form.
// The HTTP limit leaves headroom for multipart framing; the exact text limit
// is enforced by the importer.
func readImportBody(w http.ResponseWriter, r *http.Request, maxSize int64) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			return "", tooLarge(err, core.ValidationError{Field: "file", Message: "invalid form"})
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", core.ValidationError{Field: "file", Message: "no file provided"}
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", tooLarge(err, err)
	}
	return string(data), nil
}

// tooLarge converts an HTTP body limit error into ErrImportTooLarge and
// returns fallback for anything else.
func tooLarge(err, fallback error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return core.ErrImportTooLarge
	}
	return fallback
}
