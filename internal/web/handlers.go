package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
	"github.com/verseflow/verseflow/internal/logging"
	"github.com/verseflow/verseflow/internal/pipeline"
	"github.com/verseflow/verseflow/internal/store"
	"github.com/verseflow/verseflow/internal/validation"
)

// maxFormMemory bounds the in-memory portion of multipart parsing.
const maxFormMemory = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps pipeline errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case verrors.Is(err, verrors.ErrResourceLimit):
		return http.StatusRequestEntityTooLarge
	case verrors.Is(err, verrors.ErrUnknownFormat),
		verrors.Is(err, verrors.ErrMalformedInput),
		verrors.Is(err, verrors.ErrUnrepresentable),
		verrors.Is(err, verrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleProcess accepts a multipart upload and runs the pipeline over it.
//
// Form fields: file (required), from, to, checks (comma-separated tokens or
// "all"), annotate (bool), instructions (augmenter prompt).
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+maxFormMemory)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, verrors.Wrap(err, "parse upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, verrors.Wrap(err, "missing file field"))
		return
	}
	defer file.Close()

	filename, err := validation.SanitizeFilename(header.Filename)
	if err != nil {
		logging.SecurityEvent("rejected_filename", "web", "filename", header.Filename)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, verrors.Wrap(err, "read upload"))
		return
	}
	if err := validation.CheckSize(int64(len(data)), s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if err := validation.ValidateTextUpload(data); err != nil {
		logging.SecurityEvent("rejected_binary_upload", "web", "filename", filename)
		writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}

	kinds, err := parseChecks(r.FormValue("checks"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := pipeline.Options{
		From:          r.FormValue("from"),
		To:            r.FormValue("to"),
		Filename:      filename,
		Checks:        kinds,
		MaxInputBytes: s.cfg.MaxUploadBytes,
		Annotate:      parseBool(r.FormValue("annotate")),
		Instructions:  r.FormValue("instructions"),
	}
	if opts.Instructions != "" {
		opts.Augmenter = s.cfg.Augmenter
	}

	jobID := store.NewID()
	res, runErr := pipeline.Run(ctx, data, opts)
	if runErr != nil {
		job, err := s.store.SaveFailure(ctx, jobID, filename, opts.From, opts.To, runErr)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		logging.JobEvent(ctx, "job_failed", jobID, "filename", filename, "error", runErr.Error())
		writeJSON(w, statusForError(runErr), job)
		return
	}

	job, err := s.store.SaveResult(ctx, jobID, filename, res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logging.JobEvent(ctx, "job_completed", jobID,
		"filename", filename, "from", res.From, "to", res.To,
		"records", res.Stats.Records, "issues", len(res.Issues))
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	jobs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	data, err := s.store.Output(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("job has no output"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	name := downloadName(job)
	w.Header().Set("Content-Type", contentTypeFor(job.To))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Write(data)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats": formats.Tokens(),
		"checks":  checks.Kinds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseChecks resolves the checks form value. Empty means none, "all" means
// every known kind.
func parseChecks(raw string) ([]checks.Kind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.EqualFold(raw, "all") {
		return checks.Kinds(), nil
	}
	var kinds []checks.Kind
	for _, token := range strings.Split(raw, ",") {
		k, err := checks.ParseKind(token)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func downloadName(job *store.Job) string {
	base := job.Filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	if base == "" {
		base = job.ID
	}
	return base + "." + extensionFor(job.To)
}

func extensionFor(token string) string {
	switch token {
	case "markdown":
		return "md"
	case "":
		return "txt"
	default:
		return token
	}
}

func contentTypeFor(token string) string {
	switch token {
	case "json":
		return "application/json"
	case "xml":
		return "application/xml"
	case "markdown":
		return "text/markdown; charset=utf-8"
	case "tsv":
		return "text/tab-separated-values; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
