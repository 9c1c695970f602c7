package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "mdsite.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, ok := err.Context().GetString("file")
		if !ok || file != "mdsite.yaml" {
			t.Errorf("expected context file=mdsite.yaml, got %v", file)
		}
	})

	t.Run("Wrapped chain", func(t *testing.T) {
		cause := stderrors.New("permission denied")
		err := FileSystemError("read content file").WithCause(cause).WithContext("path", "/c/a.md").Build()
		wrapped := fmt.Errorf("build: %w", err)

		if !stderrors.Is(wrapped, cause) {
			t.Error("expected chain to contain the cause")
		}
		if !HasCategory(wrapped, CategoryFileSystem) {
			t.Error("expected filesystem category through fmt wrapping")
		}
		if !err.CanRetry() {
			t.Error("expected filesystem errors to be retryable")
		}
		if GetCategory(stderrors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified errors to report internal")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := EncodingError("path is not valid UTF-8").Build()
		derived := base.WithContext("name", "x")
		if _, ok := base.Context().Get("name"); ok {
			t.Error("expected original error context to stay untouched")
		}
		if v, _ := derived.Context().GetString("name"); v != "x" {
			t.Errorf("expected derived context, got %q", v)
		}
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal, RetryNever},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError, RetryBackoff},
		{"EncodingError", EncodingError("x"), CategoryEncoding, SeverityError, RetryUserAction},
		{"WatcherError", WatcherError("x"), CategoryWatcher, SeverityFatal, RetryNever},
		{"StorageError", StorageError("x"), CategoryStorage, SeverityError, RetryBackoff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category || err.Severity() != tt.severity || err.RetryStrategy() != tt.retry {
				t.Errorf("got %s/%s/%s", err.Category(), err.Severity(), err.RetryStrategy())
			}
		})
	}
}

func TestCLIErrorAdapter(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	exitCode := -1
	adapter.exit = func(code int) { exitCode = code }

	err := FileSystemError("write output file").WithContext("path", "public/a.html").Build()
	adapter.HandleError(err)

	if exitCode != 11 {
		t.Errorf("expected exit code 11, got %d", exitCode)
	}
	if !strings.Contains(out.String(), "write output file (public/a.html)") {
		t.Errorf("unexpected user message: %q", out.String())
	}
	if !strings.Contains(logs.String(), "category=filesystem") {
		t.Errorf("expected category in logs: %q", logs.String())
	}
	if adapter.ExitCodeFor(stderrors.New("plain")) != 1 {
		t.Error("expected unclassified errors to exit 1")
	}
	if adapter.ExitCodeFor(nil) != 0 {
		t.Error("expected nil error to exit 0")
	}
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/builds", nil)

	adapter.WriteErrorResponse(rec, req, StorageError("history unavailable").Build())

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var payload HTTPErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != "storage" || !payload.Retryable {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if adapter.StatusCodeFor(stderrors.New("boom")) != http.StatusInternalServerError {
		t.Error("expected 500 for unclassified errors")
	}
}
