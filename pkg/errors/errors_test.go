package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errStoreDown = errors.New("connection refused")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Booking"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Booking", "b-1"), CodeNotFound, http.StatusNotFound},
		{"slot not found", SlotNotFound("s-1"), CodeSlotNotFound, http.StatusNotFound},
		{"slot unavailable", SlotUnavailable("s-1"), CodeSlotUnavailable, http.StatusConflict},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{"conflict", Conflict("overlap"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", errStoreDown), CodeInternal, http.StatusInternalServerError},
		{"transient store", TransientStore("claim failed", errStoreDown), CodeTransientStore, http.StatusServiceUnavailable},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.StatusCode())
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	plain := SlotUnavailable("s-1")
	if got := plain.Error(); got != "SLOT_UNAVAILABLE: Time slot is not available" {
		t.Errorf("unexpected message %q", got)
	}

	wrapped := TransientStore("failed to claim slot", errStoreDown)
	want := "TRANSIENT_STORE_ERROR: failed to claim slot (caused by: connection refused)"
	if got := wrapped.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAppError_ErrorsIsThroughCause(t *testing.T) {
	sentinel := errors.New("slot unavailable")
	err := fmt.Errorf("book: %w", SlotUnavailable("s-1").WithCause(sentinel))

	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to reach the cause through AppError")
	}
	if !HasCode(err, CodeSlotUnavailable) {
		t.Error("expected HasCode to find the wrapped AppError")
	}
	if HasCode(err, CodeSlotNotFound) {
		t.Error("HasCode matched the wrong code")
	}
}

func TestAppError_Retriable(t *testing.T) {
	if !TransientStore("x", errStoreDown).Retriable() {
		t.Error("transient store errors must be retriable")
	}
	if SlotUnavailable("s-1").Retriable() {
		t.Error("race loss must not be retriable without new input")
	}
	if SlotNotFound("s-1").Retriable() {
		t.Error("missing slot must not be retriable")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := SlotNotFound("s-1")
	if AsAppError(fmt.Errorf("ctx: %w", appErr)) != appErr {
		t.Error("AsAppError should unwrap to the original AppError")
	}

	converted := AsAppError(errStoreDown)
	if converted.Code != CodeInternal || converted.Err != errStoreDown {
		t.Errorf("expected internal wrapper around plain error, got %+v", converted)
	}
	if IsAppError(errStoreDown) {
		t.Error("plain errors are not AppErrors")
	}
}
