package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/underwriting-cli/internal/store"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

type evaluateRequest struct {
	Inputs map[string]any `json:"inputs" validate:"required"`
}

type workspaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type dealRequest struct {
	WorkspaceID string   `json:"workspace_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=200"`
	Address     string   `json:"address" validate:"max=500"`
	AskingPrice *float64 `json:"asking_price" validate:"omitempty,gte=0"`
}

// overrideRequest accepts status/comment and the older
// override_status/reason spellings.
type overrideRequest struct {
	Status         string  `json:"status" validate:"required_without=OverrideStatus"`
	OverrideStatus string  `json:"override_status"`
	Comment        *string `json:"comment"`
	Reason         *string `json:"reason"`
}

func (o overrideRequest) status() string {
	if o.Status != "" {
		return o.Status
	}
	return o.OverrideStatus
}

func (o overrideRequest) comment() string {
	switch {
	case o.Comment != nil:
		return *o.Comment
	case o.Reason != nil:
		return *o.Reason
	default:
		return ""
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ev, err := s.svc.Evaluate(r.Context(), req.Inputs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if !s.decode(w, r, &req) {
		return
	}
	ws, err := s.svc.CreateWorkspace(r.Context(), req.Name, actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListWorkspaces(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.svc.GetWorkspace(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleListWorkspaceDeals(w http.ResponseWriter, r *http.Request) {
	s.listDeals(w, r, chi.URLParam(r, "workspaceID"))
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	s.listDeals(w, r, r.URL.Query().Get("workspace_id"))
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request, workspaceID string) {
	limit, ok := intParam(w, r, "limit", 0)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	deals, err := s.svc.ListDeals(r.Context(), store.DealFilter{WorkspaceID: workspaceID, Limit: limit, Offset: offset})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.svc.CreateDeal(r.Context(), underwriting.NewDeal{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Address:     req.Address,
		AskingPrice: req.AskingPrice,
	}, actor(r))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.GetDeal(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	run, err := s.svc.CreateRun(r.Context(), chi.URLParam(r, "dealID"), req.Inputs, actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.svc.ListRuns(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "dealID"), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGateSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.GateSummary(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.svc.Override(r.Context(), chi.URLParam(r, "dealID"), req.status(), req.comment(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", underwriting.DefaultActivityLimit)
	if !ok {
		return
	}
	feed, err := s.svc.Activity(r.Context(), chi.URLParam(r, "dealID"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *Server) handleICPacket(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.ICPacket(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleFullUnderwriting(w http.ResponseWriter, r *http.Request) {
	fu, err := s.svc.FullUnderwriting(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fu)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Portfolio(r.Context(), r.URL.Query().Get("workspace_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// intParam reads an integer query parameter, writing a 400 when it is not
// a number.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}
