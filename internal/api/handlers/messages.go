package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/messages"
)

// MessageService turns captured messages and manual entries into
// transactions. messages.Ingestor implements it.
type MessageService interface {
	Process(ctx context.Context, msg messages.Message) (*domain.Transaction, error)
	RecordManual(ctx context.Context, e messages.ManualEntry) (*domain.Transaction, error)
	ResolveFailed(ctx context.Context, id string, e messages.ManualEntry) (*domain.Transaction, error)
}

// FailedMessages lists messages waiting for manual entry.
// messages.FailedStore implements it.
type FailedMessages interface {
	Unprocessed(source domain.Source) []messages.FailedAttempt
	Stats() messages.FailedStats
}

// MessagesHandler handles SMS and notification ingestion.
type MessagesHandler struct {
	svc    MessageService
	failed FailedMessages
	log    zerolog.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(svc MessageService, failed FailedMessages, log zerolog.Logger) *MessagesHandler {
	return &MessagesHandler{
		svc:    svc,
		failed: failed,
		log:    log,
	}
}

// IngestMessage handles POST /api/messages
func (h *MessagesHandler) IngestMessage(w http.ResponseWriter, r *http.Request) {
	var msg messages.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	tx, err := h.svc.Process(r.Context(), msg)
	if err != nil {
		var unparsed *messages.UnparsedError
		if errors.As(err, &unparsed) {
			middleware.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      "Message not recognized as a transaction",
				"code":       http.StatusUnprocessableEntity,
				"attempt_id": unparsed.AttemptID,
			})
			return
		}
		h.writeTransactionError(w, err, "Failed to process message")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// RecordManual handles POST /api/messages/manual
func (h *MessagesHandler) RecordManual(w http.ResponseWriter, r *http.Request) {
	var entry messages.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.RecordManual(r.Context(), entry)
	if err != nil {
		h.writeTransactionError(w, err, "Failed to record transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// ListFailed handles GET /api/messages/failed
func (h *MessagesHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	attempts := h.failed.Unprocessed(domain.Source(r.URL.Query().Get("source")))

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"count":    len(attempts),
		"stats":    h.failed.Stats(),
	})
}

// ResolveFailed handles POST /api/messages/failed/{id}/resolve
func (h *MessagesHandler) ResolveFailed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var entry messages.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.ResolveFailed(r.Context(), id, entry)
	if err != nil {
		if errors.Is(err, messages.ErrFailedNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Failed attempt not found")
			return
		}
		h.writeTransactionError(w, err, "Failed to resolve message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

func (h *MessagesHandler) writeTransactionError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, learning.ErrEmptyStore):
		middleware.WriteError(w, http.StatusBadRequest, "store is required")
	case errors.Is(err, messages.ErrInvalidAmount):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}
