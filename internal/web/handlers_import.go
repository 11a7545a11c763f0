package web

// handlers_import.go drives the import wizard over JSON. Every handler
// resolves the caller's identity, applies one wizard transition through
// the session service, and returns the resulting snapshot, so the client
// can always re-render from the response alone.

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tigerops/salesops/internal/core"
	"github.com/tigerops/salesops/internal/schema"
	"github.com/tigerops/salesops/internal/web/middleware"
)

// fieldInfo describes one semantic field for mapping UIs.
type fieldInfo struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// sessionResponse is the wizard snapshot returned by every session
// endpoint.
type sessionResponse struct {
	SessionID   string             `json:"sessionId"`
	Stage       string             `json:"stage"`
	FileName    string             `json:"fileName,omitempty"`
	Headers     []string           `json:"headers,omitempty"`
	Fields      []fieldInfo        `json:"fields"`
	Mapping     map[string]string  `json:"mapping,omitempty"`
	Rows        []core.MappedRow   `json:"rows,omitempty"`
	ValidRows   int                `json:"validRows"`
	InvalidRows int                `json:"invalidRows"`
	TotalRows   int                `json:"totalRows"`
	Failure     string             `json:"failure,omitempty"`
	Report      *core.ImportReport `json:"report,omitempty"`
}

func snapshotResponse(id uuid.UUID, w core.Wizard) sessionResponse {
	fields := make([]fieldInfo, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = fieldInfo{Key: f.Key, Label: f.Label, Required: f.Required}
	}

	return sessionResponse{
		SessionID:   id.String(),
		Stage:       string(w.Stage),
		FileName:    w.FileName,
		Headers:     w.Headers,
		Fields:      fields,
		Mapping:     w.Mapping,
		Rows:        w.Rows,
		ValidRows:   w.ValidCount(),
		InvalidRows: w.InvalidCount(),
		TotalRows:   len(w.Rows),
		Failure:     w.Failure,
		Report:      w.Report,
	}
}

// handleCreateSession opens a new wizard session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	id, err := s.service.CreateSession(identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, snapshotResponse(id, core.NewWizard()))
}

// handleSessionSnapshot returns the current wizard state.
func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	wizard, err := s.service.Snapshot(id, identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleCloseSession discards a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := s.service.CloseSession(id, identity.UserID); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionFile accepts the uploaded spreadsheet and advances the
// session to the mapping stage.
func (s *Server) handleSessionFile(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		badRequest(w, "file exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "no file provided; send the spreadsheet as multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read uploaded file")
		return
	}

	wizard, err := s.service.UploadFile(id, identity.UserID, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionMapping overrides one column binding.
func (s *Server) handleSessionMapping(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Field  string `json:"field"`
		Header string `json:"header"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	wizard, err := s.service.Bind(id, identity.UserID, req.Field, req.Header)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionApply applies the mapping and builds the working set.
func (s *Server) handleSessionApply(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	wizard, err := s.service.ApplyMapping(id, identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionBack steps the wizard one stage backward.
func (s *Server) handleSessionBack(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	wizard, err := s.service.Back(id, identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionReset starts the session over from the upload stage.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	wizard, err := s.service.Reset(id, identity.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionEditRow applies one cell edit and re-validates the row.
func (s *Server) handleSessionEditRow(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rowNumber, ok := rowNumberParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	wizard, err := s.service.EditCell(id, identity.UserID, rowNumber, req.Field, core.CellFromAny(req.Value))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionRemoveRow drops one row from the working set.
func (s *Server) handleSessionRemoveRow(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rowNumber, ok := rowNumberParam(w, r)
	if !ok {
		return
	}

	wizard, err := s.service.RemoveRow(id, identity.UserID, rowNumber)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// handleSessionCommit runs the working set through the batch importer.
func (s *Server) handleSessionCommit(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		PeriodKey string `json:"periodKey"`
		RowType   string `json:"rowType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.PeriodKey == "" {
		badRequest(w, "periodKey is required")
		return
	}
	rowType := core.RowType(req.RowType)
	if req.RowType == "" {
		rowType = core.RowTypeActual
	} else if !core.ValidRowType(req.RowType) {
		badRequest(w, "rowType must be actual, projection, or pipeline")
		return
	}

	ctx, cancel := commitContext(r, s.cfg.Import.CommitTimeout)
	defer cancel()

	wizard, err := s.service.Commit(ctx, id, identity.UserID, req.PeriodKey, rowType)
	if err != nil {
		// The snapshot in the error path is the post-failure wizard,
		// back in Validation with the working set intact.
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotResponse(id, wizard))
}

// sessionID parses the session ID route parameter.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		badRequest(w, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// commitContext bounds a commit so a stalled database cannot pin the
// session mutex forever.
func commitContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}

// rowNumberParam parses the row number route parameter.
func rowNumberParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "rowNumber"))
	if err != nil || n < 1 {
		badRequest(w, "invalid row number")
		return 0, false
	}
	return n, true
}
