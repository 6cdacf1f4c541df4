package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
)

type stubRegistryService struct {
	freeze  func(ctx context.Context, input registry.FreezeInput) (*models.SerialNumberRecord, bool, error)
	resolve func(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error)
}

func (s *stubRegistryService) Freeze(ctx context.Context, input registry.FreezeInput) (*models.SerialNumberRecord, bool, error) {
	if s.freeze != nil {
		return s.freeze(ctx, input)
	}
	return &models.SerialNumberRecord{Serial: input.Serial}, true, nil
}

func (s *stubRegistryService) Resolve(ctx context.Context, serialNumber string) (*models.SerialNumberRecord, error) {
	if s.resolve != nil {
		return s.resolve(ctx, serialNumber)
	}
	return nil, nil
}

func (s *stubRegistryService) Bind(ctx context.Context, lineItemID, serialNumber string) (*registry.BindOutcome, error) {
	return &registry.BindOutcome{}, nil
}

func (s *stubRegistryService) BindingFor(ctx context.Context, lineItemID string) (*models.LineItemBinding, error) {
	return nil, nil
}

func (s *stubRegistryService) List(ctx context.Context, params registry.ListParams) (*registry.ListResult, error) {
	return &registry.ListResult{}, nil
}

func TestFreezeSerialParsesPayload(t *testing.T) {
	var captured registry.FreezeInput
	reg := &stubRegistryService{
		freeze: func(ctx context.Context, input registry.FreezeInput) (*models.SerialNumberRecord, bool, error) {
			captured = input
			return &models.SerialNumberRecord{Serial: "1542-2"}, true, nil
		},
	}

	handler := FreezeSerial(reg, nil)
	body := `{"serial":"SW-1542-2","type":"Innato bass","tuning":"Dm4","frequency":"432"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/serials/freeze", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Type != enums.InstrumentTypeInnato {
		t.Fatalf("type not parsed, got %s", captured.Type)
	}
	if captured.Frequency == nil || *captured.Frequency != enums.TuningFrequency432 {
		t.Fatalf("frequency not parsed")
	}
}

func TestFreezeSerialRepeatReturns200(t *testing.T) {
	reg := &stubRegistryService{
		freeze: func(ctx context.Context, input registry.FreezeInput) (*models.SerialNumberRecord, bool, error) {
			return &models.SerialNumberRecord{Serial: "1542-2"}, false, nil
		},
	}

	handler := FreezeSerial(reg, nil)
	body := `{"serial":"SW-1542-2","type":"Natey","tuning":"A3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/serials/freeze", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestResolveSerialNotFrozen(t *testing.T) {
	handler := ResolveSerial(&stubRegistryService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/serials/SW-9999-1", nil)
	req = withURLParam(req, "serial", "SW-9999-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
