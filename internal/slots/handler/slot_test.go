package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reservo/internal/slots/repository"
	"reservo/internal/slots/service"
	"reservo/internal/slots/validator"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type noBookings struct{}

func (noBookings) FindBySlotID(context.Context, string) ([]*model.Booking, error) { return nil, nil }

func newTestRouter(t *testing.T) (*httprouter.Router, repository.SlotRepository) {
	t.Helper()
	cfg := &config.Config{Log: logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})}
	repo := repository.NewMemorySlotRepository()
	svc := service.NewSlotService(repo, noBookings{}, validator.NewSlotValidator(cfg.Log), cfg)

	router := httprouter.New()
	NewSlotHandler(svc, cfg.Log).RegisterRoutes(router)
	return router, repo
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSlotHandler_Lifecycle(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/slots",
		`{"start_time":"2030-04-01T09:00:00+02:00","end_time":"2030-04-01T10:00:00+02:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data model.Slot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Data.StartTime.Hour() != 7 {
		t.Errorf("expected start stored in UTC (07:00), got %v", created.Data.StartTime)
	}

	rec = do(router, http.MethodPost, "/api/v1/slots",
		`{"start_time":"2030-04-01T07:30:00Z","end_time":"2030-04-01T08:30:00Z"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for overlap, got %d", rec.Code)
	}

	rec = do(router, http.MethodGet, "/api/v1/slots/id/"+created.Data.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	_, _ = repo.TryClaim(context.Background(), created.Data.ID)

	rec = do(router, http.MethodGet, "/api/v1/slots?available=true", "")
	var page httputil.PaginatedResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.TotalCount != 0 {
		t.Errorf("claimed slot should not be listed as available, total=%d", page.TotalCount)
	}

	rec = do(router, http.MethodDelete, "/api/v1/slots/id/"+created.Data.ID, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 deleting a claimed slot, got %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/api/v1/slots/id/"+created.Data.ID+"/reopen", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reopening an orphaned claim, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(router, http.MethodDelete, "/api/v1/slots/id/"+created.Data.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 deleting a reopened slot, got %d", rec.Code)
	}
}

func TestSlotHandler_Errors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed body", http.MethodPost, "/api/v1/slots", `{`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"zone-less time", http.MethodPost, "/api/v1/slots", `{"start_time":"2030-04-01T09:00:00","end_time":"2030-04-01T10:00:00"}`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"end before start", http.MethodPost, "/api/v1/slots", `{"start_time":"2030-04-01T10:00:00Z","end_time":"2030-04-01T09:00:00Z"}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"created unavailable", http.MethodPost, "/api/v1/slots", `{"start_time":"2030-04-01T09:00:00Z","end_time":"2030-04-01T10:00:00Z","available":false}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"reopen unknown", http.MethodPost, "/api/v1/slots/id/nope/reopen", "", http.StatusNotFound, apperrors.CodeSlotNotFound},
		{"unknown slot", http.MethodGet, "/api/v1/slots/id/nope", "", http.StatusNotFound, apperrors.CodeSlotNotFound},
		{"delete unknown", http.MethodDelete, "/api/v1/slots/id/nope", "", http.StatusNotFound, apperrors.CodeSlotNotFound},
		{"bad limit", http.MethodGet, "/api/v1/slots?limit=x", "", http.StatusBadRequest, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp httputil.ErrorResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
}
