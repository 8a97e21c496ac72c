package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.gallery, s.verifier, s.ledger, s.camera, s.sessionOptions())
	reportsHandler := handlers.NewReportsHandler(s.ledger, s.config)
	galleryHandler := handlers.NewGalleryHandler(s.gallery)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Attendance
		r.Post("/attendance/verify", attendanceHandler.Verify)
		r.Get("/attendance/dates", attendanceHandler.Dates)
		r.Get("/attendance/{date}", attendanceHandler.Day)

		// Reports
		r.Get("/reports/day/{date}", reportsHandler.Day)
		r.Get("/reports/month/{month}", reportsHandler.Month)
		r.Get("/reports/late/{date}", reportsHandler.Late)
		r.Get("/reports/export", reportsHandler.Export)

		// Gallery
		r.Get("/gallery", galleryHandler.List)
	})
}
