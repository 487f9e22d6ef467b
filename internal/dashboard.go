package internal

import (
	"net/http"
	"strconv"

	"it-inventory-api/internal/auth"
	"it-inventory-api/internal/models"
)

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Service.DashboardStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// warrantyAlerts lists assets whose warranty has expired or ends within 90 days
func (s *Server) warrantyAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.Service.WarrantyAlerts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) recentRepairs(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	repairs, err := s.Service.RecentRepairs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if repairs == nil {
		repairs = []models.RecentRepair{}
	}
	writeJSON(w, http.StatusOK, repairs)
}

func (s *Server) frequentRepairs(w http.ResponseWriter, r *http.Request) {
	assets, err := s.Service.FrequentRepairs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// triggerWarrantyCheck runs the daily sweep now. force=true reruns a day
// that already ran and needs the force capability.
func (s *Server) triggerWarrantyCheck(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := queryBool(r, "force"); v != nil {
		force = *v
	}
	if force && !auth.Can(auth.RoleFromContext(r.Context()), auth.CapForceSweep) {
		auth.SendErrorResponse(w, "Forcing a warranty check requires admin", "FORBIDDEN", http.StatusForbidden)
		return
	}

	report, err := s.Service.RunWarrantySweep(r.Context(), force)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	message := "Warranty check completed"
	if report.Skipped {
		message = "Warranty check skipped: " + report.Reason
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"report":  report,
	})
}
