package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req services.SimulationRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.planner.Simulate(r.Context(), req)
	if err != nil {
		writeError(w, r, err, log.OpSimulate)
		return
	}
	OK(res).Write(w)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req services.SimulationRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	cmp, err := s.planner.Compare(r.Context(), req)
	if err != nil {
		writeError(w, r, err, log.OpCompare)
		return
	}
	OK(cmp).Write(w)
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := ParseWindow(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	now, err := ParseNow(q, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	bs, err := s.planner.Buckets(r.Context(), now, window)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	OK(list(bs)).Write(w)
}

func (s *Server) handleSaveOverride(w http.ResponseWriter, r *http.Request) {
	var o core.BucketOverride
	if err := DecodeJSON(w, r, &o); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	o.BucketID = r.PathValue("id")
	if o.Label != nil {
		l := sanitizeInput(*o.Label)
		o.Label = &l
	}
	if err := o.Validate(); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := s.store.SaveOverride(r.Context(), o); err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	OK(o).Write(w)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	now, err := ParseNow(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	projs, err := s.planner.Projections(r.Context(), now)
	if err != nil {
		writeError(w, r, err, log.OpProject)
		return
	}
	OK(list(projs)).Write(w)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.planner.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpSnapshot)
		return
	}
	OK(snap).Write(w)
}

type suggestionsRequest struct {
	Suggestions []services.Suggestion `json:"suggestions"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	outcomes, err := s.suggestions.Apply(r.Context(), req.Suggestions)
	if err != nil {
		writeError(w, r, err, log.OpSuggest)
		return
	}
	OK(list(outcomes)).Write(w)
}
