// httpapi/handler.go
// Package httpapi wires the lead-capture HTTP surface: the submission
// endpoint, the session lead list, start-over, export, health, and metrics.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dalemusser/leadcapture/config"
	"github.com/dalemusser/leadcapture/export"
	"github.com/dalemusser/leadcapture/httputil"
	"github.com/dalemusser/leadcapture/lead"
	"github.com/dalemusser/leadcapture/logging"
	"github.com/dalemusser/leadcapture/metrics"
	"github.com/dalemusser/leadcapture/session"
	"github.com/dalemusser/leadcapture/store"
	"github.com/dalemusser/leadcapture/submit"
	"github.com/dalemusser/leadcapture/textutil"
)

// Handler serves the lead-capture API.
type Handler struct {
	submitter *submit.Submitter
	session   *session.Session
	store     store.LeadStore
	logger    *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(s *submit.Submitter, sess *session.Session, st store.LeadStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{submitter: s, session: sess, store: st, logger: logger}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(h.logger))
	r.Use(logging.RequestLogger(h.logger))
	r.Use(metrics.HTTPMetrics)
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Use(requestSizeLimit(cfg.MaxRequestBodyBytes))
	}
	if cfg != nil && cfg.CORS.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api/leads", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Post("/reset", h.handleReset)
		r.Get("/export", h.handleExport)
	})
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// requestSizeLimit caps the request body size via http.MaxBytesReader.
func requestSizeLimit(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in lead.FormInput
	if err := httputil.BindJSON(r, &in); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res := h.submitter.Submit(r.Context(), in, r.RemoteAddr)

	switch res.Status {
	case submit.StatusAccepted:
		httputil.WriteJSON(w, http.StatusOK, res)
	case submit.StatusDuplicate:
		// Silent safety net: the admitted attempt is already carrying the
		// user's intent, so this is not an error toward the client.
		httputil.WriteJSON(w, http.StatusAccepted, res)
	case submit.StatusInvalid:
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, res)
	default:
		httputil.WriteJSON(w, http.StatusBadGateway, res)
	}
}

type listResponse struct {
	Submitted bool        `json:"submitted"`
	Leads     []lead.Lead `json:"leads"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	leads := h.session.Leads()
	if q := textutil.Fold(r.URL.Query().Get("q")); q != "" {
		leads = filterLeads(leads, q)
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Submitted: h.session.Submitted(),
		Leads:     leads,
	})
}

// filterLeads keeps leads whose folded name key contains the folded query, so
// "jose" matches "José García" regardless of case or diacritics.
func filterLeads(leads []lead.Lead, foldedQuery string) []lead.Lead {
	out := make([]lead.Lead, 0, len(leads))
	for _, l := range leads {
		if strings.Contains(l.SearchKey(), foldedQuery) {
			out = append(out, l)
		}
	}
	return out
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.submitter.Reset()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	leads, err := h.store.ListLeads(r.Context())
	if err != nil {
		h.logger.Error("export list failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "export_failed", "could not load leads")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
		if err := export.CSV(w, leads); err != nil {
			h.logger.Error("csv export failed", zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.xlsx"`)
		if err := export.Excel(w, leads); err != nil {
			h.logger.Error("xlsx export failed", zap.Error(err))
		}
	default:
		httputil.JSONError(w, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx")
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]func(context.Context) error{
		"store": h.store.Ping,
	}

	results := make(map[string]string, len(checks))
	anyErr := false
	for name, check := range checks {
		if err := check(r.Context()); err != nil {
			anyErr = true
			results[name] = "error: " + err.Error()
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
		} else {
			results[name] = "ok"
		}
	}

	if anyErr {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Checks: results})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: results})
}
