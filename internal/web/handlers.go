package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldline/fieldline/internal/importer"
	"github.com/fieldline/fieldline/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// tenantHeader carries the acting tenant. The gateway in front of this
// service sets it after authentication; we only parse it.
const tenantHeader = "X-Tenant-ID"

func tenantID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(tenantHeader)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s header", tenantHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header", tenantHeader)
	}
	return id, nil
}

// entityInfo describes one importable entity for the wizard's first step.
type entityInfo struct {
	Type   importer.EntityType        `json:"type"`
	Label  string                     `json:"label"`
	Fields []importer.FieldDefinition `json:"fields"`
}

// handleListEntities returns the importable entity types and their
// canonical field lists.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	defs := importer.All()
	infos := make([]entityInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, entityInfo{
			Type:   def.Type,
			Label:  def.Label,
			Fields: def.Fields,
		})
	}
	writeJSON(w, infos)
}

// handleCreateImport accepts a multipart upload and opens an import
// session. Form fields: "entity" (clients, jobs, equipment) and "file".
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	tenant, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.Upload.MaxFileSize))
		return
	}

	entity := importer.EntityType(r.FormValue("entity"))
	if !entity.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown entity type: %q", entity))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("reading upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read upload")
		return
	}

	view, err := s.service.CreateSession(r.Context(), tenant, entity, header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, view)
}

// handleGetImport returns the current session state.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, view)
}

// mappingRequest reassigns one source column to a target field. Field
// "skip" excludes the column from the import.
type mappingRequest struct {
	Header string `json:"header"`
	Field  string `json:"field"`
}

// handleSetMapping updates one column assignment and returns the
// revalidated session.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Header == "" || req.Field == "" {
		writeError(w, http.StatusBadRequest, "header and field are required")
		return
	}

	view, err := s.service.SetMapping(chi.URLParam(r, "sessionID"), req.Header, req.Field)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		if strings.Contains(err.Error(), "frozen") {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, view)
}

// previewResponse is a page of annotated rows plus the session snapshot
// the page was built from.
type previewResponse struct {
	Rows    []importer.RowAnnotation `json:"rows"`
	Session importer.SessionView     `json:"session"`
}

// handlePreview returns a page of rows annotated with validation and
// duplicate flags. Query params: offset, limit.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = s.cfg.Upload.PreviewRows
	}

	rows, view, err := s.service.Preview(r.Context(), chi.URLParam(r, "sessionID"), offset, limit)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, previewResponse{Rows: rows, Session: view})
}

// handleConfirm freezes the mapping and starts the import run.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.service.Confirm(r.Context(), sessionID); err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		if strings.Contains(err.Error(), "already confirmed") {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"sessionID": sessionID, "status": "importing"})
}

// handleProgress streams import progress over Server-Sent Events until
// the run completes or the client disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progressCh, err := s.service.SubscribeProgress(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleResult blocks until the import finishes and returns the final
// counts and per-row errors.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Result(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, result)
}
