package internal

import (
	"net/http"
	"strconv"
	"strings"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

// assetFilter reads the asset list filters from the query string
func assetFilter(r *http.Request, params listParams) (models.AssetFilter, error) {
	values := r.URL.Query()
	f := models.AssetFilter{
		Assigned: queryBool(r, "assigned"),
		Query:    params.q,
		Sort:     params.sort,
		Limit:    params.limit,
		Offset:   params.offset,
	}

	if s := strings.ToLower(strings.TrimSpace(values.Get("type"))); s != "" {
		t := models.AssetType(s)
		if !t.Valid() {
			return f, lifecycle.Validation("unknown asset type %q", s)
		}
		f.Type = &t
	}
	if s := strings.ToLower(strings.TrimSpace(values.Get("status"))); s != "" {
		st := models.AssetStatus(s)
		if !st.Valid() {
			return f, lifecycle.Validation("unknown asset status %q", s)
		}
		f.Status = &st
	}
	if s := strings.TrimSpace(values.Get("employee_id")); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return f, lifecycle.Validation("employee_id must be a positive integer")
		}
		f.EmployeeID = &id
	}
	return f, nil
}

// listAssets handles asset listing with filters and pagination
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	f, err := assetFilter(r, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	assets, total, err := s.Service.ListAssets(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendListResponse(w, assets, total, params)
}

// getAsset returns one asset with its holder, repairs and warranty tier
func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	detail, err := s.Service.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := s.Service.CreateAsset(r.Context(), actor(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// updateAsset changes attributes only; status moves through the action endpoints
func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateAssetRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := s.Service.UpdateAsset(r.Context(), actor(r), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.Service.DeleteAsset(r.Context(), actor(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) assignAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.AssignRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := s.Service.Assign(r.Context(), actor(r), id, req.EmployeeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) unassignAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	asset, err := s.Service.Unassign(r.Context(), actor(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) decommissionAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.DecommissionRequest
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := s.Service.Decommission(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) listRepairs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	repairs, err := s.Service.ListRepairs(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repairs)
}

// logRepair records a repair and moves the asset into repair
func (s *Server) logRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.CreateRepairRequest
	if !s.decode(w, r, &req) {
		return
	}
	repair, err := s.Service.LogRepair(r.Context(), actor(r), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, repair)
}

func (s *Server) markFixed(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	asset, err := s.Service.MarkFixed(r.Context(), actor(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) assetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	entries, err := s.Service.History(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
