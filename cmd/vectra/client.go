package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vectra/internal/batch"
	"vectra/internal/job"
)

// apiClient talks to the vectra daemon over HTTP.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Detail)
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("is the daemon running? %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var payload struct {
			Detail string `json:"detail"`
		}
		detail := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Detail != "" {
			detail = payload.Detail
		}
		return nil, &apiError{Status: resp.StatusCode, Detail: detail}
	}
	return resp, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (c *apiClient) postJSON(ctx context.Context, path string, body, dst any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// multipartUpload builds a multipart body from files under the given field
// name plus conversion option fields.
func multipartUpload(field string, paths []string, options map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", p, err)
		}
		part, err := mw.CreateFormFile(field, filepath.Base(p))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	for key, value := range options {
		if value == "" {
			continue
		}
		if err := mw.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *apiClient) submit(ctx context.Context, path string, options map[string]string) (string, error) {
	body, contentType, err := multipartUpload("file", []string{path}, options)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/vectorize", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.JobID, nil
}

func (c *apiClient) status(ctx context.Context, jobID string) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.getJSON(ctx, "/api/status/"+jobID, &snap)
	return snap, err
}

func (c *apiClient) jobs(ctx context.Context) ([]job.Snapshot, error) {
	var payload struct {
		Jobs []job.Snapshot `json:"jobs"`
	}
	err := c.getJSON(ctx, "/api/jobs", &payload)
	return payload.Jobs, err
}

func (c *apiClient) cancel(ctx context.Context, jobID string) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.postJSON(ctx, "/api/cancel/"+jobID, struct{}{}, &snap)
	return snap, err
}

func (c *apiClient) export(ctx context.Context, jobID, format string, resolution, quality int, out io.Writer) error {
	url := fmt.Sprintf("%s/api/export?job_id=%s&format=%s", c.baseURL, jobID, format)
	if resolution > 0 {
		url += fmt.Sprintf("&resolution=%d", resolution)
	}
	if quality > 0 {
		url += fmt.Sprintf("&quality=%d", quality)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func (c *apiClient) recolor(ctx context.Context, jobID string, index int, color string) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.postJSON(ctx, "/api/segment/recolor",
		map[string]any{"job_id": jobID, "index": index, "color": color}, &snap)
	return snap, err
}

func (c *apiClient) merge(ctx context.Context, jobID string, first, second int) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.postJSON(ctx, "/api/segment/merge",
		map[string]any{"job_id": jobID, "layer1": first, "layer2": second}, &snap)
	return snap, err
}

func (c *apiClient) split(ctx context.Context, jobID string, index, parts int) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.postJSON(ctx, "/api/segment/split",
		map[string]any{"job_id": jobID, "index": index, "n_parts": parts}, &snap)
	return snap, err
}

func (c *apiClient) deleteLayer(ctx context.Context, jobID string, index int) (job.Snapshot, error) {
	var snap job.Snapshot
	err := c.postJSON(ctx, "/api/segment/delete",
		map[string]any{"job_id": jobID, "index": index}, &snap)
	return snap, err
}

func (c *apiClient) batchSubmit(ctx context.Context, paths []string, options map[string]string) (*batch.Summary, error) {
	body, contentType, err := multipartUpload("files", paths, options)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/batch", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var summary batch.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *apiClient) batchStatus(ctx context.Context, batchID string) (*batch.Status, error) {
	var status batch.Status
	if err := c.getJSON(ctx, "/api/batch/status/"+batchID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) batchDownload(ctx context.Context, batchID string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/batch/download/"+batchID, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}
