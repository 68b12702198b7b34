package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"vectra/internal/export"
	"vectra/internal/job"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// parseOptions builds conversion options from form fields, starting from the
// configured defaults so absent fields do not zero out a setting.
func (s *Server) parseOptions(form func(string) string) (job.Options, error) {
	d := s.cfg.Defaults
	opts := job.Options{
		Mode:      d.Mode,
		Colors:    d.Colors,
		Detail:    d.Detail,
		Smoothing: d.Smoothing,
		Despeckle: d.Despeckle,
	}

	if v := form("mode"); v != "" {
		opts.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"colors", &opts.Colors},
		{"detail", &opts.Detail},
		{"smoothing", &opts.Smoothing},
		{"despeckle", &opts.Despeckle},
		{"corner_threshold", &opts.CornerThreshold},
	} {
		v := form(field.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return job.Options{}, services.Wrap(services.ErrValidation, "api", "options",
				field.name+" must be an integer", err)
		}
		*field.dst = n
	}
	if v := form("remove_background"); v != "" {
		opts.RemoveBackground = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "on")
	}
	return opts, nil
}

func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Jobs.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, services.Wrap(services.ErrValidation, "api", "vectorize", "missing file field", err))
		return
	}
	defer file.Close()
	source, err := io.ReadAll(file)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err := s.parseOptions(r.FormValue)
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := s.manager.Submit(source, header.Filename, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type clipboardRequest struct {
	Image   string       `json:"image"`
	Options *job.Options `json:"options"`
}

// handleClipboard accepts a base64 data URL, the shape produced by browser
// clipboard APIs.
func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Jobs.MaxUploadBytes*2)
	var req clipboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.Wrap(services.ErrValidation, "api", "clipboard", "invalid request body", err))
		return
	}

	encoded := req.Image
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}
	source, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		writeError(w, services.Wrap(services.ErrValidation, "api", "clipboard", "invalid base64 image data", err))
		return
	}

	opts, err := s.parseOptions(func(string) string { return "" })
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Options != nil {
		opts = *req.Options
	}
	jobID, err := s.manager.Submit(source, "clipboard", opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if snap, ok := s.hub.Get(jobID); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	snap, err := s.manager.Get(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.manager.List()})
}

type resultResponse struct {
	JobID  string   `json:"job_id"`
	SVG    string   `json:"svg"`
	Colors []string `json:"colors"`
	Layers int      `json:"layers"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	var resp resultResponse
	err := s.manager.WithModel(jobID, func(model *segment.Model) error {
		payload, _, renderErr := s.cache.GetOrRender(r.Context(), jobID, model, export.FormatSVG, export.Options{})
		if renderErr != nil {
			return renderErr
		}
		resp = resultResponse{
			JobID:  jobID,
			SVG:    string(payload),
			Colors: model.Palette(),
			Layers: model.LayerCount(),
			Width:  model.Width,
			Height: model.Height,
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobID := q.Get("job_id")
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	var opts export.Options
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"resolution", &opts.Resolution},
		{"quality", &opts.Quality},
	} {
		if v := q.Get(field.name); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				writeError(w, services.Wrap(services.ErrValidation, "api", "export",
					field.name+" must be an integer", convErr))
				return
			}
			*field.dst = n
		}
	}

	var payload []byte
	var contentType string
	err = s.manager.WithModel(jobID, func(model *segment.Model) error {
		var renderErr error
		payload, contentType, renderErr = s.cache.GetOrRender(r.Context(), jobID, model, format, opts)
		return renderErr
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+"."+format.Extension()+`"`)
	w.Write(payload)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if err := s.manager.Cancel(jobID); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.manager.Get(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
