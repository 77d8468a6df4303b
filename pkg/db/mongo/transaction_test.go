package mongo

import (
	"errors"
	"fmt"
	"testing"

	apperrors "reservo/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsTransactionUnsupported(t *testing.T) {
	standalone := mongo.CommandError{Code: codeIllegalOperation, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"standalone", standalone, true},
		{"wrapped", fmt.Errorf("insert: %w", standalone), true},
		{"other command error", mongo.CommandError{Code: 11000}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransactionUnsupported(tt.err); got != tt.want {
				t.Errorf("isTransactionUnsupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapTxError(t *testing.T) {
	if wrapTxError(nil) != nil {
		t.Error("nil should stay nil")
	}

	appErr := apperrors.Conflict("overlap")
	if got := wrapTxError(appErr); got != appErr {
		t.Errorf("app errors must pass through unwrapped, got %v", got)
	}

	cause := errors.New("network")
	if got := wrapTxError(cause); !errors.Is(got, cause) {
		t.Errorf("expected wrapped cause, got %v", got)
	}
}
