package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
)

var errNoProbe = errors.New("no probe image uploaded and no camera configured")

// ReportsHandler serves the derived attendance reports.
type ReportsHandler struct {
	ledger *ledger.Ledger
	cfg    *config.Config
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(l *ledger.Ledger, cfg *config.Config) *ReportsHandler {
	return &ReportsHandler{ledger: l, cfg: cfg}
}

// Day returns the attendance listing for one date, sorted by arrival.
// GET /api/v1/reports/day/{date}
func (h *ReportsHandler) Day(w http.ResponseWriter, r *http.Request) {
	summary, err := report.Day(h.ledger, chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, reportStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Month returns per-identity presence counts for one month.
// GET /api/v1/reports/month/{month}
func (h *ReportsHandler) Month(w http.ResponseWriter, r *http.Request) {
	summary, err := report.Month(h.ledger, chi.URLParam(r, "month"))
	if err != nil {
		respondError(w, reportStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Late returns arrivals after the workday start plus grace period. Both can
// be overridden per request with ?start=HH:MM&grace=MINUTES.
// GET /api/v1/reports/late/{date}
func (h *ReportsHandler) Late(w http.ResponseWriter, r *http.Request) {
	start := h.cfg.Report.WorkdayStart
	if v := r.URL.Query().Get("start"); v != "" {
		start = v
	}

	grace := h.cfg.Report.GraceMinutes
	if v := r.URL.Query().Get("grace"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "grace must be a number of minutes")
			return
		}
		grace = parsed
	}

	summary, err := report.Late(h.ledger, chi.URLParam(r, "date"), start, grace)
	if err != nil {
		respondError(w, reportStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Export serves the whole ledger as a CSV download.
// GET /api/v1/reports/export
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	// Render into memory first so a ledger failure still gets a clean
	// error response instead of a truncated download.
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, h.ledger); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to export attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendance-%s.csv", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// reportStatus maps report failures to HTTP statuses. Validation problems
// are the caller's fault; ledger problems are ours.
func reportStatus(err error) int {
	if errors.Is(err, ledger.ErrCorrupt) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
