package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalorders "github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

type stubOrdersService struct {
	getOrder       func(ctx context.Context, orderNumber string) (*internalorders.OrderDetail, error)
	listOrders     func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	createOrder    func(ctx context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderDetail, error)
	updateStatus   func(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error)
	itemStatus     func(ctx context.Context, itemID uuid.UUID, status enums.ItemStatus) (*models.OrderItem, error)
	listItems      func(ctx context.Context, filters internalorders.ItemFilters) ([]models.OrderItem, error)
	archive        func(ctx context.Context, itemID uuid.UUID, reason string) (*models.OrderItem, error)
	updateSettings func(ctx context.Context, itemID uuid.UUID, input internalorders.UpdateItemSettingsInput) (*models.OrderItem, error)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderNumber string) (*internalorders.OrderDetail, error) {
	if s.getOrder != nil {
		return s.getOrder(ctx, orderNumber)
	}
	return nil, nil
}

func (s *stubOrdersService) ListOrders(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	if s.listOrders != nil {
		return s.listOrders(ctx, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderDetail, error) {
	if s.createOrder != nil {
		return s.createOrder(ctx, input)
	}
	return &internalorders.OrderDetail{}, nil
}

func (s *stubOrdersService) UpdateOrder(ctx context.Context, orderNumber string, input internalorders.UpdateOrderInput) (*models.Order, error) {
	return &models.Order{OrderNumber: orderNumber}, nil
}

func (s *stubOrdersService) DeleteOrder(ctx context.Context, orderNumber string) error {
	return nil
}

func (s *stubOrdersService) UpdateOrderStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error) {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, orderNumber, status)
	}
	return &models.Order{OrderNumber: orderNumber, Status: status}, nil
}

func (s *stubOrdersService) ListItems(ctx context.Context, filters internalorders.ItemFilters) ([]models.OrderItem, error) {
	if s.listItems != nil {
		return s.listItems(ctx, filters)
	}
	return nil, nil
}

func (s *stubOrdersService) GetItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return &models.OrderItem{ID: itemID}, nil
}

func (s *stubOrdersService) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.ItemStatus) (*models.OrderItem, error) {
	if s.itemStatus != nil {
		return s.itemStatus(ctx, itemID, status)
	}
	return &models.OrderItem{ID: itemID, Status: status}, nil
}

func (s *stubOrdersService) UpdateItemSettings(ctx context.Context, itemID uuid.UUID, input internalorders.UpdateItemSettingsInput) (*models.OrderItem, error) {
	if s.updateSettings != nil {
		return s.updateSettings(ctx, itemID, input)
	}
	return &models.OrderItem{ID: itemID}, nil
}

func (s *stubOrdersService) ArchiveItem(ctx context.Context, itemID uuid.UUID, reason string) (*models.OrderItem, error) {
	if s.archive != nil {
		return s.archive(ctx, itemID, reason)
	}
	return &models.OrderItem{ID: itemID}, nil
}

func requestWithParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubOrdersService{
		listOrders: func(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if filters.Query != "innato" {
				t.Fatalf("unexpected query %q", filters.Query)
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusShipping {
				t.Fatalf("status filter not parsed")
			}
			return &internalorders.OrderList{Orders: []models.Order{{OrderNumber: "SW-2001"}}}, nil
		},
	}

	handler := List(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&q=innato&status=shipping", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data internalorders.OrderList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].OrderNumber != "SW-2001" {
		t.Fatalf("unexpected orders in response")
	}
}

func TestListRejectsBadStatus(t *testing.T) {
	handler := List(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateRequiresItems(t *testing.T) {
	handler := Create(&stubOrdersService{}, nil)
	body := `{"orderNumber":"SW-3001","customerName":"Mara","items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreatePassesParsedInput(t *testing.T) {
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		createOrder: func(ctx context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderDetail, error) {
			captured = input
			return &internalorders.OrderDetail{Order: models.Order{OrderNumber: input.OrderNumber}}, nil
		},
	}

	handler := Create(svc, nil)
	body := `{"orderNumber":"SW-3001","customerName":"Mara","items":[{"type":"Innato","tuning":"Dm4","frequency":"432"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(captured.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(captured.Items))
	}
	if captured.Items[0].Type != enums.InstrumentTypeInnato {
		t.Fatalf("type not parsed, got %s", captured.Items[0].Type)
	}
	if captured.Items[0].Frequency == nil || *captured.Items[0].Frequency != enums.TuningFrequency432 {
		t.Fatalf("frequency not parsed")
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	handler := UpdateStatus(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/SW-2001/status", strings.NewReader(`{"status":"launched"}`))
	req = requestWithParam(req, "orderNumber", "SW-2001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateItemStatusRoundTrips(t *testing.T) {
	itemID := uuid.New()
	svc := &stubOrdersService{
		itemStatus: func(ctx context.Context, gotID uuid.UUID, status enums.ItemStatus) (*models.OrderItem, error) {
			if gotID != itemID {
				t.Fatalf("unexpected item id %s", gotID)
			}
			if status != enums.ItemStatusBuilding {
				t.Fatalf("unexpected status %s", status)
			}
			return &models.OrderItem{ID: gotID, Status: status}, nil
		},
	}

	handler := UpdateItemStatus(svc, nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/items/"+itemID.String()+"/status", strings.NewReader(`{"status":"building"}`))
	req = requestWithParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestArchiveItemRequiresReason(t *testing.T) {
	handler := ArchiveItem(&stubOrdersService{}, nil)
	itemID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/"+itemID.String()+"/archive", strings.NewReader(`{}`))
	req = requestWithParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
