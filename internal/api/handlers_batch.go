package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"vectra/internal/batch"
	"vectra/internal/services"
)

// batchSizeFactor scales the single-file upload limit up for multi-file
// batch bodies.
const batchSizeFactor = 8

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Jobs.MaxUploadBytes*batchSizeFactor)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, err)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, services.Wrap(services.ErrValidation, "api", "batch", "missing files field", nil))
		return
	}

	opts, err := s.parseOptions(r.FormValue)
	if err != nil {
		writeError(w, err)
		return
	}

	var uploads []batch.Upload
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		uploads = append(uploads, batch.Upload{Filename: header.Filename, Data: data})
	}

	summary, err := s.coordinator.Submit(uploads, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, summary)
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.coordinator.Status(mux.Vars(r)["batch_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleBatchDownload(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batch_id"]
	archive, err := s.coordinator.DownloadAll(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeArchive(w, "batch-"+batchID+".zip", archive)
}

type downloadZipRequest struct {
	JobIDs []string `json:"job_ids"`
}

func (s *Server) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	var req downloadZipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.Wrap(services.ErrValidation, "api", "batch", "invalid request body", err))
		return
	}
	archive, err := s.coordinator.DownloadJobs(r.Context(), req.JobIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeArchive(w, "vectra-export.zip", archive)
}

func writeArchive(w http.ResponseWriter, name string, archive []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(archive)
}
