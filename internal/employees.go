package internal

import (
	"net/http"

	"it-inventory-api/internal/models"
)

// listEmployees handles GET /employees?q=&active_only=
func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	f := models.EmployeeFilter{
		Query:  params.q,
		Limit:  params.limit,
		Offset: params.offset,
	}
	if v := queryBool(r, "active_only"); v != nil {
		f.ActiveOnly = *v
	}

	employees, total, err := s.Service.ListEmployees(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendListResponse(w, employees, total, params)
}

// getEmployee returns the employee with the assets they hold
func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := s.Service.GetEmployee(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) employeeAssets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	assets, err := s.Service.EmployeeAssets(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEmployeeRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.Service.CreateEmployee(r.Context(), actor(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateEmployeeRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.Service.UpdateEmployee(r.Context(), actor(r), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// deactivateEmployee soft-deletes the employee and releases their assets
func (s *Server) deactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	released, err := s.Service.DeactivateEmployee(r.Context(), actor(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Employee deactivated",
		"assets_released": released,
	})
}
