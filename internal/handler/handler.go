package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/Dan9191/reasonable-comp/internal/service"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers every endpoint on r
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/api/v1/estimate", h.Estimate).Methods("POST")
	r.HandleFunc("/api/v1/report", h.Report).Methods("POST")
	r.HandleFunc("/api/v1/report/email", h.EmailReport).Methods("POST")
	r.HandleFunc("/api/v1/data/quality", h.DataQuality).Methods("GET")
	r.HandleFunc("/api/v1/data/status", h.DataStatus).Methods("GET")
	r.HandleFunc("/api/v1/data/refresh", h.RefreshData).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
}

// Estimate handles a compensation calculation
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.CalcRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Estimate(req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Report returns the calculation as a PDF download
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.CalcRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.svc.Report(req)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.Header().Set("X-Report-ID", doc.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.PDF); err != nil {
		h.log.Warnf("Failed to write report %s: %v", doc.ID, err)
	}
}

type emailRequest struct {
	Request models.CalcRequest `json:"request"`
	To      string             `json:"to"`
}

// EmailReport renders the report and mails it
func (h *Handler) EmailReport(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !h.decode(w, r, &body) {
		return
	}
	doc, err := h.svc.EmailReport(body.Request, body.To)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"reportId": doc.ID,
		"filename": doc.Filename,
		"to":       body.To,
	})
}

// DataQuality reports the market data behind a state and role
func (h *Handler) DataQuality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := strings.ToUpper(strings.TrimSpace(q.Get("state")))
	role := models.Role(strings.ToLower(strings.TrimSpace(q.Get("role"))))
	quality, err := h.svc.DataQuality(state, role)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quality)
}

// DataStatus reports refresh timing and source health
func (h *Handler) DataStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.DataStatus()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RefreshData forces a market data refresh
func (h *Handler) RefreshData(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.RefreshData(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var (
			tooLarge *http.MaxBytesError
			verr     *models.ValidationError
		)
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "invalid request", verr.Problems)
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err), nil)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		verr  *models.ValidationError
		unavl *models.DataUnavailableError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid request", verr.Problems)
	case errors.As(err, &unavl):
		writeError(w, http.StatusUnprocessableEntity, unavl.Error(), nil)
	case errors.Is(err, service.ErrMarketDataDisabled),
		errors.Is(err, service.ErrMailerDisabled),
		errors.Is(err, wages.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.log.Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

type errorBody struct {
	Error    string                `json:"error"`
	Problems []models.FieldProblem `json:"problems,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, problems []models.FieldProblem) {
	writeJSON(w, status, errorBody{Error: msg, Problems: problems})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
