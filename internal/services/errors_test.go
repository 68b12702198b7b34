package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"vectra/internal/services"
)

func TestWrapTagsAndDetails(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrStageFailure, "pipeline", "trace", "layer 3", cause)

	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("wrapped error lost its marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost its cause: %v", err)
	}
	for _, fragment := range []string{"pipeline", "trace", "layer 3", "boom"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err.Error(), fragment)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", services.ErrValidation, http.StatusBadRequest},
		{"index", services.ErrIndexOutOfRange, http.StatusBadRequest},
		{"same index", services.ErrSameIndex, http.StatusBadRequest},
		{"format", services.ErrUnsupportedFormat, http.StatusBadRequest},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"invalid state", services.ErrInvalidState, http.StatusConflict},
		{"stage failure", services.ErrStageFailure, http.StatusInternalServerError},
		{"unclassified", errors.New("mystery"), http.StatusInternalServerError},
		{"wrapped not found", services.Wrap(services.ErrNotFound, "job", "get", "abc", nil), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
