package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/gcsuploader"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/pdftext"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

// MaxStatementSize caps a statement upload.
const MaxStatementSize = 20 << 20

// Uploader stores statement files. gcsuploader.Client implements it.
type Uploader interface {
	UploadBytes(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// StatementsHandler handles statement parsing and ingestion jobs.
type StatementsHandler struct {
	deps      pipeline.Deps
	publisher jobs.Publisher
	uploader  Uploader
	bucket    string
	log       zerolog.Logger
}

// NewStatementsHandler creates a statements handler. deps.Learner and
// deps.Sink are only used when a parse request asks to persist. uploader may
// be nil, in which case jobs must name an existing gs:// URI.
func NewStatementsHandler(deps pipeline.Deps, publisher jobs.Publisher, uploader Uploader, bucket string, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		deps:      deps,
		publisher: publisher,
		uploader:  uploader,
		bucket:    bucket,
		log:       log,
	}
}

type statementInput struct {
	Text     string `json:"text"`
	BankName string `json:"bank_name"`
	UseAI    bool   `json:"use_ai"`
	Persist  bool   `json:"persist"`
	GCSURI   string `json:"gcs_uri"`

	raw      []byte
	filename string
}

// readStatement accepts a JSON body, a multipart upload in field "file" or
// a raw text/CSV/PDF body with options in the query string.
func readStatement(r *http.Request) (statementInput, error) {
	var in statementInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, fmt.Errorf("invalid request body: %w", err)
		}
		return in, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxStatementSize); err != nil {
			return in, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return in, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()

		if in.raw, err = io.ReadAll(file); err != nil {
			return in, fmt.Errorf("read upload: %w", err)
		}
		in.filename = header.Filename
		in.BankName = r.FormValue("bank_name")
		in.UseAI, _ = strconv.ParseBool(r.FormValue("use_ai"))
		in.Persist, _ = strconv.ParseBool(r.FormValue("persist"))
		return in, nil

	default:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return in, fmt.Errorf("read body: %w", err)
		}
		in.raw = data
		query := r.URL.Query()
		in.BankName = query.Get("bank_name")
		in.UseAI, _ = strconv.ParseBool(query.Get("use_ai"))
		in.Persist, _ = strconv.ParseBool(query.Get("persist"))
		return in, nil
	}
}

// ParseStatement handles POST /api/statements/parse
func (h *StatementsHandler) ParseStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxStatementSize)

	in, err := readStatement(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	deps := pipeline.Deps{Parser: h.deps.Parser}
	if in.Persist {
		deps.Learner = h.deps.Learner
		deps.Sink = h.deps.Sink
	}

	res, err := pipeline.IngestStatement(r.Context(), deps, pipeline.Request{
		Text:     in.Text,
		Raw:      in.raw,
		BankName: in.BankName,
		UseAI:    in.UseAI,
	})
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrNoInput):
		middleware.WriteError(w, http.StatusBadRequest, "Statement text is empty")
		return
	case errors.Is(err, pdftext.ErrNoPages), errors.Is(err, pdftext.ErrNoText):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No text could be read from the PDF")
		return
	default:
		h.log.Error().Err(err).Msg("Failed to parse statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to parse statement")
		return
	}

	h.log.Info().
		Str("strategy", res.Strategy).
		Int("transactions", len(res.Transactions)).
		Bool("persisted", in.Persist).
		Msg("Statement parsed")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"result":    res,
		"count":     len(res.Transactions),
		"persisted": in.Persist,
	})
}

// EnqueueJob handles POST /api/statements/jobs. A JSON body names an
// existing gs:// URI; an uploaded file is first stored in the bucket.
func (h *StatementsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxStatementSize)

	in, err := readStatement(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	job := &jobs.ParseStatementJob{
		GCSURI:   in.GCSURI,
		Text:     in.Text,
		BankName: in.BankName,
		UseAI:    in.UseAI,
	}

	if len(in.raw) > 0 {
		if h.uploader == nil || h.bucket == "" {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Statement uploads are not configured")
			return
		}
		name := in.filename
		if name == "" {
			name = "statement.txt"
		}
		objectName := fmt.Sprintf("uploads/%s/%s-%s", time.Now().Format("2006/01/02"), uuid.NewString(), path.Base(name))
		if err := h.uploader.UploadBytes(ctx, h.bucket, objectName, in.raw, gcsuploader.ContentTypeFor(name)); err != nil {
			h.log.Error().Err(err).Str("object", objectName).Msg("Failed to upload statement")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
			return
		}
		job.GCSURI = gcsuploader.URI(h.bucket, objectName)
	}

	if job.GCSURI == "" && strings.TrimSpace(job.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri, text or file is required")
		return
	}
	if job.GCSURI != "" {
		if _, _, err := gcsuploader.ParseURI(job.GCSURI); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.publisher.PublishParseStatement(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is shutting down")
			return
		}
		h.log.Error().Err(err).Msg("Failed to enqueue parse job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", job.GCSURI).Msg("Parse job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": job.GCSURI,
		"status":  string(jobs.JobStatusPending),
	})
}
