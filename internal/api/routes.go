package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"procscribe/internal/diagram"
	"procscribe/internal/document"
	"procscribe/internal/extraction"
	"procscribe/internal/fileutil"
	"procscribe/internal/logging"
	"procscribe/internal/pipeline"
	"procscribe/internal/process"
	"procscribe/internal/services"
)

const (
	uploadField = "video"
	// multipartOverhead covers boundaries and part headers around the upload.
	multipartOverhead = 1 << 20
	maxRunsLimit      = 500
)

var downloadTypes = map[string]string{
	document.Extension: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	diagram.Extension:  "application/xml",
}

// NewRouter builds the chi router for cfg.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Token, cfg.Logger))

		r.Post("/process", processHandler(cfg))
		r.Get("/files/{name}", fileHandler(cfg))
		r.Get("/runs", listRunsHandler(cfg))
		r.Get("/runs/{id}", getRunHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.WithContext(r.Context(), cfg.Logger)
		if cfg.Processor == nil {
			WriteError(w, http.StatusServiceUnavailable, "pipeline unavailable", "unavailable")
			return
		}
		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+multipartOverhead)
		}

		saved, status, err := saveUpload(r, cfg)
		if err != nil {
			code := "bad_request"
			if status == http.StatusUnprocessableEntity {
				code = services.Kind(err)
			} else if status == http.StatusRequestEntityTooLarge {
				code = "too_large"
			}
			logger.Warn("upload rejected", logging.Int("status", status), logging.Error(err))
			WriteJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, Stage: uploadStage(status)})
			return
		}
		logger.Info("upload stored",
			logging.String("path", saved.Path),
			logging.Int64("bytes", saved.Size),
			logging.String("sha256", saved.SHA256),
		)

		result, err := cfg.Processor.Process(r.Context(), saved.Path)
		if err != nil {
			WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  services.Kind(err),
				Stage: string(result.FailedStage),
				RunID: result.RunID,
			})
			return
		}
		if result.Failure != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error: result.Failure.Error(),
				Code:  services.Kind(result.Failure),
				Stage: string(result.FailedStage),
				RunID: result.RunID,
			})
			return
		}
		WriteJSON(w, http.StatusOK, FromResult(result))
	}
}

// saveUpload streams the video part into the upload directory.
func saveUpload(r *http.Request, cfg ServerConfig) (fileutil.Saved, int, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return fileutil.Saved{}, http.StatusBadRequest, errors.New("expected multipart/form-data body")
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return fileutil.Saved{}, http.StatusBadRequest, errors.New(`missing "video" file field`)
		}
		if err != nil {
			return fileutil.Saved{}, bodyErrorStatus(err), err
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		saved, status, err := storePart(part, cfg)
		_ = part.Close()
		return saved, status, err
	}
}

func storePart(part *multipart.Part, cfg ServerConfig) (fileutil.Saved, int, error) {
	name := filepath.Base(strings.ReplaceAll(part.FileName(), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return fileutil.Saved{}, http.StatusBadRequest, errors.New("upload has no file name")
	}
	if _, ok := extraction.MimeTypeFor(name); !ok {
		return fileutil.Saved{}, http.StatusUnprocessableEntity, &extraction.InvalidInputError{
			Path:   name,
			Reason: "unsupported extension (want " + strings.Join(extraction.SupportedExtensions(), ", ") + ")",
		}
	}
	stem, err := process.FileStem(strings.TrimSuffix(name, filepath.Ext(name)))
	if err != nil {
		stem = "upload"
	}
	dst := filepath.Join(cfg.UploadDir, uuid.NewString()[:8]+"_"+stem+strings.ToLower(filepath.Ext(name)))

	saved, err := fileutil.SaveStream(part, dst, cfg.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, fileutil.ErrTooLarge) {
			return fileutil.Saved{}, http.StatusRequestEntityTooLarge, err
		}
		return fileutil.Saved{}, bodyErrorStatus(err), err
	}
	return saved, http.StatusOK, nil
}

func bodyErrorStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func uploadStage(status int) string {
	if status == http.StatusUnprocessableEntity {
		return string(pipeline.StageValidating)
	}
	return ""
}

func fileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if r.URL.RawPath != "" {
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
		}
		contentType, ok := downloadTypes[strings.ToLower(filepath.Ext(name))]
		if !ok || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
			WriteError(w, http.StatusNotFound, "file not found", "not_found")
			return
		}

		f, err := os.Open(filepath.Join(cfg.OutputDir, name))
		if err != nil {
			WriteError(w, http.StatusNotFound, "file not found", "not_found")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			WriteError(w, http.StatusNotFound, "file not found", "not_found")
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "_")+`"`)
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runs == nil {
			WriteError(w, http.StatusNotFound, "run history disabled", "not_found")
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "bad_request")
				return
			}
			limit = min(n, maxRunsLimit)
		}
		runs, err := cfg.Runs.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "internal")
			return
		}
		resp := RunsResponse{Runs: make([]Run, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = FromRun(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runs == nil {
			WriteError(w, http.StatusNotFound, "run history disabled", "not_found")
			return
		}
		run, err := cfg.Runs.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load run", "internal")
			return
		}
		if run == nil {
			WriteError(w, http.StatusNotFound, "run not found", "not_found")
			return
		}
		WriteJSON(w, http.StatusOK, FromRun(*run))
	}
}
