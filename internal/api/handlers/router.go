// Package handlers implements the HTTP endpoints of the statement extractor.
package handlers

import (
	"net/http"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
)

// Handlers groups every endpoint handler for NewRouter.
type Handlers struct {
	Statements   *StatementsHandler
	Jobs         *JobsHandler
	Messages     *MessagesHandler
	Descriptions *DescriptionsHandler
	Merchants    *MerchantsHandler
}

// NewRouter registers the API routes. Nil handlers leave their routes out.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if h.Statements != nil {
		mux.HandleFunc("POST /api/statements/parse", h.Statements.ParseStatement)
		mux.HandleFunc("POST /api/statements/jobs", h.Statements.EnqueueJob)
	}

	if h.Jobs != nil {
		mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", h.Jobs.GetJob)
	}

	if h.Messages != nil {
		mux.HandleFunc("POST /api/messages", h.Messages.IngestMessage)
		mux.HandleFunc("POST /api/messages/manual", h.Messages.RecordManual)
		mux.HandleFunc("GET /api/messages/failed", h.Messages.ListFailed)
		mux.HandleFunc("POST /api/messages/failed/{id}/resolve", h.Messages.ResolveFailed)
	}

	if h.Descriptions != nil {
		mux.HandleFunc("GET /api/descriptions", h.Descriptions.ListDescriptions)
		mux.HandleFunc("POST /api/descriptions", h.Descriptions.CreateDescription)
		mux.HandleFunc("DELETE /api/descriptions", h.Descriptions.ClearDescriptions)
		mux.HandleFunc("GET /api/descriptions/stats", h.Descriptions.Stats)
		mux.HandleFunc("GET /api/descriptions/categories", h.Descriptions.Categories)
		mux.HandleFunc("GET /api/descriptions/similar", h.Descriptions.FindSimilar)
		mux.HandleFunc("PUT /api/descriptions/{store}", h.Descriptions.UpdateDescription)
		mux.HandleFunc("DELETE /api/descriptions/{store}", h.Descriptions.DeleteDescription)
	}

	if h.Merchants != nil {
		mux.HandleFunc("GET /api/merchants", h.Merchants.GetDictionary)
		mux.HandleFunc("POST /api/merchants/reload", h.Merchants.Reload)
	}

	return mux
}
