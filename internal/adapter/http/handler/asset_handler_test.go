package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

func TestAssetHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateAssetInput
	handler := NewAssetHandler(&assetServiceStub{
		createAssetFn: func(ctx context.Context, input usecase.CreateAssetInput) (*domain.Asset, error) {
			captured = input
			return &domain.Asset{ID: "a1", Name: input.Name, Currency: "USD", Kind: domain.AssetKindCash, Balance: input.OpeningBalance}, nil
		},
	})

	body := `{"name":"USD box","currency":"usd","opening_balance":"1234.5"}`
	req := httptest.NewRequest(http.MethodPost, "/assets", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Name != "USD box" || !captured.OpeningBalance.Equal(decimal.RequireFromString("1234.5")) {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.AssetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Display != "$1,234.50" {
		t.Fatalf("expected formatted balance, got %q", resp.Display)
	}
}

func TestAssetHandler_Create_InvalidJSON(t *testing.T) {
	handler := NewAssetHandler(&assetServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/assets", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssetHandler_Create_ValidationError(t *testing.T) {
	handler := NewAssetHandler(&assetServiceStub{
		createAssetFn: func(ctx context.Context, input usecase.CreateAssetInput) (*domain.Asset, error) {
			return nil, domain.NewValidationError("currency", "unknown currency %q", input.Currency)
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/assets", bytes.NewBufferString(`{"name":"x","currency":"XYZ"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssetHandler_Get_NotFound(t *testing.T) {
	handler := NewAssetHandler(&assetServiceStub{
		getAssetFn: func(ctx context.Context, id string) (*domain.Asset, error) {
			return nil, &domain.NotFoundError{Resource: "asset", ID: id}
		},
	})

	req := setChiURLParams(httptest.NewRequest(http.MethodGet, "/assets/a9", nil), "id", "a9")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAssetHandler_Remove(t *testing.T) {
	var removed string
	handler := NewAssetHandler(&assetServiceStub{
		removeAssetFn: func(ctx context.Context, id string) error {
			removed = id
			return nil
		},
	})

	req := setChiURLParams(httptest.NewRequest(http.MethodDelete, "/assets/a1", nil), "id", "a1")
	rec := httptest.NewRecorder()

	handler.Remove(rec, req)

	if rec.Code != http.StatusNoContent || removed != "a1" {
		t.Fatalf("expected 204 removing a1, got %d removing %q", rec.Code, removed)
	}
}

func TestAssetHandler_ListBanks_Empty(t *testing.T) {
	handler := NewAssetHandler(&assetServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/banks", nil)
	rec := httptest.NewRecorder()

	handler.ListBanks(rec, req)

	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", got)
	}
}

func TestAssetHandler_CreateBank_Forbidden(t *testing.T) {
	handler := NewAssetHandler(&assetServiceStub{
		createBankFn: func(ctx context.Context, name string) (*domain.Bank, error) {
			return nil, domain.ErrPermissionDenied
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/banks", bytes.NewBufferString(`{"name":"Sahara Bank"}`))
	rec := httptest.NewRecorder()

	handler.CreateBank(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
