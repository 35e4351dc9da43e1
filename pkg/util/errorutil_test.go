package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"no rows maps to not found", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"deadline maps to dependency failure", context.DeadlineExceeded, CodeDependencyFailure, http.StatusBadGateway},
		{"generic error maps to internal", errors.New("boom"), CodeInternalError, http.StatusInternalServerError},
		{"forbidden passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"invalid transition passes through", NewInvalidTransition("bad move", nil), CodeInvalidTransition, http.StatusUnprocessableEntity},
		{"conflict passes through", NewConflict("raced", nil), CodeConflict, http.StatusConflict},
		{"unauthenticated passes through", NewUnauthenticated("who"), CodeUnauthenticated, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			if got.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tc.wantCode)
			}
			if got.HTTPStatus != tc.wantStatus {
				t.Errorf("status = %d, want %d", got.HTTPStatus, tc.wantStatus)
			}
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Fatal("nil should stay nil")
	}
	if MapError(nil) != nil {
		t.Fatal("MapError(nil) should stay nil")
	}
}

func TestIsCode(t *testing.T) {
	err := NewNotFound("ticket", map[string]any{"ticket_id": "t-1"})
	if !IsCode(err, CodeNotFound) {
		t.Error("IsCode missed matching code")
	}
	if IsCode(err, CodeConflict) {
		t.Error("IsCode matched wrong code")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCode(wrapped, CodeNotFound) {
		t.Error("IsCode missed wrapped code")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("IsCode matched non-domain error")
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	err := NewDependencyFailure("notifier unavailable", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped cause lost")
	}
}
