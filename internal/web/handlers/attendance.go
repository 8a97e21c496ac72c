package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/verifier"
)

// maxUploadSize limits probe image uploads to 20 MB.
const maxUploadSize = 20 << 20

// AttendanceHandler serves attendance verification and ledger lookups.
type AttendanceHandler struct {
	gallery  *gallery.Gallery
	verifier verifier.Verifier
	ledger   *ledger.Ledger
	camera   camera.Source
	opts     session.Options
}

// NewAttendanceHandler creates an attendance handler. The camera source may
// be nil when the deployment has no camera; verification then requires an
// uploaded image.
func NewAttendanceHandler(g *gallery.Gallery, v verifier.Verifier, l *ledger.Ledger, cam camera.Source, opts session.Options) *AttendanceHandler {
	return &AttendanceHandler{
		gallery:  g,
		verifier: v,
		ledger:   l,
		camera:   cam,
		opts:     opts,
	}
}

// Verify runs one attendance attempt. The probe comes from the multipart
// "image" field when present, otherwise from the configured camera.
// POST /api/v1/attendance/verify
func (h *AttendanceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	source, err := h.probeSource(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := session.New(h.gallery, h.verifier, h.ledger, camera.NewHandle(source), h.opts)
	outcome := s.Run(r.Context())

	switch outcome.State {
	case session.StateRecorded:
		log.Printf("attendance recorded for %s (attempt %s)", sanitizeForLog(outcome.Identity), outcome.AttemptID)
		respondJSON(w, http.StatusOK, outcome)
	case session.StateNoMatch:
		respondJSON(w, http.StatusOK, outcome)
	default:
		respondJSON(w, http.StatusBadGateway, outcome)
	}
}

// probeSource picks where the probe frame comes from for this request.
func (h *AttendanceHandler) probeSource(r *http.Request) (camera.Source, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadSize)

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		return camera.Frame(data), nil
	}

	if h.camera == nil {
		return nil, errNoProbe
	}
	return h.camera, nil
}

// Dates lists every day with at least one attendance record.
// GET /api/v1/attendance/dates
func (h *AttendanceHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.ledger.AllDates()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read attendance ledger")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// Day returns all attendance records for one date.
// GET /api/v1/attendance/{date}
func (h *AttendanceHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(constants.DateFormat, date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD form")
		return
	}

	records, err := h.ledger.RecordsFor(date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read attendance ledger")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": records,
	})
}
