package api

import (
	"encoding/json"
	"net/http"

	"vectra/internal/services"
)

type recolorRequest struct {
	JobID string `json:"job_id"`
	Index int    `json:"index"`
	Color string `json:"color"`
}

type mergeRequest struct {
	JobID  string `json:"job_id"`
	First  int    `json:"layer1"`
	Second int    `json:"layer2"`
}

type deleteRequest struct {
	JobID string `json:"job_id"`
	Index int    `json:"index"`
}

type splitRequest struct {
	JobID string `json:"job_id"`
	Index int    `json:"index"`
	Parts int    `json:"n_parts"`
}

func (s *Server) handleRecolor(w http.ResponseWriter, r *http.Request) {
	var req recolorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respondAfterEdit(w, req.JobID, s.editor.Recolor(req.JobID, req.Index, req.Color))
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respondAfterEdit(w, req.JobID, s.editor.Merge(req.JobID, req.First, req.Second))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respondAfterEdit(w, req.JobID, s.editor.Delete(req.JobID, req.Index))
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	req := splitRequest{Parts: 2}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respondAfterEdit(w, req.JobID, s.editor.Split(req.JobID, req.Index, req.Parts))
}

// respondAfterEdit returns the refreshed snapshot so clients see the new
// palette without a second round trip.
func (s *Server) respondAfterEdit(w http.ResponseWriter, jobID string, editErr error) {
	if editErr != nil {
		writeError(w, editErr)
		return
	}
	snap, err := s.manager.Get(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "segment", "invalid request body", err)
	}
	return nil
}
