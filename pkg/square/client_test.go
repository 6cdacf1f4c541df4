package square

import (
	"errors"
	"net/http"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
)

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("access_token", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("order_id", "sq-1"); v != "sq-1" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusInternalServerError, pkgerrors.CodeUpstream},
		{http.StatusBadGateway, pkgerrors.CodeUpstream},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			payload:  `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND"}]}`,
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "server error",
			status:   http.StatusServiceUnavailable,
			payload:  `{"errors":[{"category":"API_ERROR","code":"SERVICE_UNAVAILABLE"}]}`,
			wantCode: pkgerrors.CodeUpstream,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		mapped := c.mapSquareError(err, "operation")
		if mapped == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		typed := pkgerrors.As(mapped)
		if typed == nil {
			t.Fatalf("%s: result is not pkgerror", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}
}

func TestMapSquareErrorNetworkFailure(t *testing.T) {
	c := &Client{}
	mapped := c.mapSquareError(errors.New("dial tcp: connection refused"), "search orders")
	typed := pkgerrors.As(mapped)
	if typed == nil {
		t.Fatalf("result is not pkgerror")
	}
	if typed.Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream code, got %s", typed.Code())
	}
}

func TestExtractSquareErrors(t *testing.T) {
	c := &Client{}
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := c.extractSquareErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}

func TestOrderSearchParamsBuildsFilters(t *testing.T) {
	params := OrderSearchParams{
		LocationIDs: []string{"loc-1"},
		Limit:       25,
		Cursor:      "abc",
	}
	req := params.toSquareRequest()
	if len(req.LocationIDs) != 1 || req.LocationIDs[0] != "loc-1" {
		t.Fatalf("location ids not carried: %+v", req.LocationIDs)
	}
	if req.Limit == nil || *req.Limit != 25 {
		t.Fatalf("limit not carried")
	}
	if req.Cursor == nil || *req.Cursor != "abc" {
		t.Fatalf("cursor not carried")
	}
	if req.Query == nil || req.Query.Sort == nil {
		t.Fatalf("sort missing")
	}
	if req.Query.Filter != nil {
		t.Fatalf("expected no filter without states or updated-after")
	}
}
