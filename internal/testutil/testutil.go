// Package testutil holds the small assertion helpers shared by the
// internal package tests.
package testutil

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

// DiscardLogger returns a *slog.Logger that discards all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Equal fails the test if want != got.
func Equal[T comparable](t testing.TB, want, got T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// NoError fails the test immediately if err is not nil.
func NoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ErrorContains fails the test if err is nil or doesn't contain substr.
func ErrorContains(t testing.TB, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("error %q does not contain %q", err.Error(), substr)
	}
}

// True fails the test if condition is false.
func True(t testing.TB, condition bool) {
	t.Helper()
	if !condition {
		t.Error("expected true, got false")
	}
}

// False fails the test if condition is true.
func False(t testing.TB, condition bool) {
	t.Helper()
	if condition {
		t.Error("expected false, got true")
	}
}

// isNil reports whether val is nil, including the typed-nil case where a
// non-nil interface wraps a nil pointer, slice, map, channel, or function.
func isNil(val any) bool {
	if val == nil {
		return true
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// NotNil fails the test immediately if val is nil.
func NotNil(t testing.TB, val any) {
	t.Helper()
	if isNil(val) {
		t.Fatal("expected non-nil, got nil")
	}
}

// StatusCode fails the test immediately if the HTTP status code doesn't
// match: a wrong status means the response body has a different shape and
// later assertions would only add noise.
func StatusCode(t testing.TB, want, got int) {
	t.Helper()
	if got != want {
		t.Fatalf("HTTP status: got %d, want %d", got, want)
	}
}

// Contains fails the test if s does not contain substr.
func Contains(t testing.TB, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%q does not contain %q", s, substr)
	}
}
