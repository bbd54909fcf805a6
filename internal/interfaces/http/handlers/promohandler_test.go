package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	promodto "msgdeck/internal/application/promo/dto"
	"msgdeck/internal/application/promo/usecases"
	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/interfaces/http/handlers/testutil"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/services/markdown"
)

type mockPromoEngine struct {
	mock.Mock
}

func (m *mockPromoEngine) Validate(ctx context.Context, code string, userID, planID uint, cycle vo.BillingCycle) (*usecases.ValidationResult, error) {
	args := m.Called(ctx, code, userID, planID, cycle)
	r, _ := args.Get(0).(*usecases.ValidationResult)
	return r, args.Error(1)
}

func (m *mockPromoEngine) Quote(ctx context.Context, cmd usecases.QuoteCommand) (*promodto.DiscountDTO, error) {
	args := m.Called(ctx, cmd)
	d, _ := args.Get(0).(*promodto.DiscountDTO)
	return d, args.Error(1)
}

func (m *mockPromoEngine) ListActive(ctx context.Context) ([]*promo.PromoCode, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*promo.PromoCode)
	return p, args.Error(1)
}

func (m *mockPromoEngine) CreatePromo(ctx context.Context, cmd usecases.CreatePromoCommand) (*promo.PromoCode, error) {
	args := m.Called(ctx, cmd)
	p, _ := args.Get(0).(*promo.PromoCode)
	return p, args.Error(1)
}

func (m *mockPromoEngine) UpdatePromo(ctx context.Context, cmd usecases.UpdatePromoCommand) (*promo.PromoCode, error) {
	args := m.Called(ctx, cmd)
	p, _ := args.Get(0).(*promo.PromoCode)
	return p, args.Error(1)
}

func (m *mockPromoEngine) DeletePromo(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPromoEngine) GetPromo(ctx context.Context, id uint) (*promo.PromoCode, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*promo.PromoCode)
	return p, args.Error(1)
}

func (m *mockPromoEngine) ListPromos(ctx context.Context, filter promo.Filter) ([]*promo.PromoCode, int64, error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).([]*promo.PromoCode)
	return p, args.Get(1).(int64), args.Error(2)
}

func createTestPromo(t *testing.T) *promo.PromoCode {
	t.Helper()
	now := time.Now().UTC()
	p, err := promo.NewPromoCode(promo.CreateParams{
		Code:          "SAVE20",
		Description:   "Save _20%_ on any plan",
		DiscountType:  promo.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("20"),
		ValidFrom:     now.AddDate(0, 0, -1),
		ValidUntil:    now.AddDate(0, 1, 0),
		IsActive:      true,
	})
	require.NoError(t, err)
	return p
}

func newTestPromoHandler(engine promoEngine) *PromoHandler {
	return NewPromoHandler(engine, markdown.NewMarkdownService(), testutil.NewMockLogger())
}

func TestPromoHandler_ListActive(t *testing.T) {
	engine := &mockPromoEngine{}
	engine.On("ListActive", mock.Anything).Return([]*promo.PromoCode{createTestPromo(t)}, nil)
	handler := newTestPromoHandler(engine)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/promo-codes/active", nil)
	handler.ListActive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var promos []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &promos))
	require.Len(t, promos, 1)
	assert.Equal(t, "SAVE20", promos[0]["code"])
	assert.Contains(t, promos[0]["description_html"], "<em>20%</em>")
	// usage counters are admin-only
	assert.NotContains(t, promos[0], "current_uses")
}

func TestPromoHandler_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		engine := &mockPromoEngine{}
		engine.On("Validate", mock.Anything, "save20", uint(42), uint(1), vo.BillingCycleYearly).
			Return(&usecases.ValidationResult{Valid: true, Promo: createTestPromo(t), Message: usecases.MsgValid}, nil)
		handler := newTestPromoHandler(engine)

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes/validate",
			ValidatePromoRequest{Code: "save20", PlanID: 1, BillingCycle: "yearly"})
		testutil.SetAuthContext(c, 42)
		handler.Validate(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		var result promodto.ValidationResultDTO
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.True(t, result.Valid)
		require.NotNil(t, result.Promo)
		assert.Equal(t, "SAVE20", result.Promo.Code)
	})

	t.Run("already used is a normal answer", func(t *testing.T) {
		engine := &mockPromoEngine{}
		engine.On("Validate", mock.Anything, "SAVE20", uint(42), uint(1), vo.BillingCycleMonthly).
			Return(&usecases.ValidationResult{Message: usecases.MsgAlreadyUsed}, nil)
		handler := newTestPromoHandler(engine)

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes/validate",
			ValidatePromoRequest{Code: "SAVE20", PlanID: 1, BillingCycle: "MONTHLY"})
		testutil.SetAuthContext(c, 42)
		handler.Validate(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		var result promodto.ValidationResultDTO
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Valid)
		assert.Equal(t, usecases.MsgAlreadyUsed, result.Message)
		assert.Nil(t, result.Promo)
	})

	t.Run("unknown cycle", func(t *testing.T) {
		handler := newTestPromoHandler(&mockPromoEngine{})

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes/validate",
			ValidatePromoRequest{Code: "SAVE20", PlanID: 1, BillingCycle: "weekly"})
		testutil.SetAuthContext(c, 42)
		handler.Validate(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPromoHandler_CalculateDiscount(t *testing.T) {
	engine := &mockPromoEngine{}
	engine.On("Quote", mock.Anything, usecases.QuoteCommand{Code: "BIG50", UserID: 42, PlanID: 1, BillingCycle: "yearly"}).
		Return(&promodto.DiscountDTO{
			Code:           "BIG50",
			PlanID:         1,
			BillingCycle:   "YEARLY",
			OriginalAmount: decimal.RequireFromString("1000"),
			DiscountAmount: decimal.RequireFromString("300"),
			FinalAmount:    decimal.RequireFromString("700"),
			Currency:       "USD",
		}, nil)
	engine.On("Quote", mock.Anything, mock.MatchedBy(func(cmd usecases.QuoteCommand) bool { return cmd.Code == "OLD" })).
		Return(nil, errors.NewValidationError(usecases.MsgExpired))
	handler := newTestPromoHandler(engine)

	c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes/calculate-discount",
		ValidatePromoRequest{Code: "BIG50", PlanID: 1, BillingCycle: "yearly"})
	testutil.SetAuthContext(c, 42)
	handler.CalculateDiscount(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var d map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &d))
	assert.EqualValues(t, 300, d["discount_amount"])
	assert.EqualValues(t, 700, d["final_amount"])

	c, w = testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes/calculate-discount",
		ValidatePromoRequest{Code: "OLD", PlanID: 1, BillingCycle: "yearly"})
	testutil.SetAuthContext(c, 42)
	handler.CalculateDiscount(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.Equal(t, usecases.MsgExpired, resp.Error.Message)
}

func TestPromoHandler_CreatePromo(t *testing.T) {
	engine := &mockPromoEngine{}
	engine.On("CreatePromo", mock.Anything, mock.MatchedBy(func(cmd usecases.CreatePromoCommand) bool {
		return cmd.Code == "SAVE20" && cmd.DiscountType == "PERCENTAGE" &&
			cmd.DiscountValue.Equal(decimal.NewFromInt(20)) && cmd.IsActive &&
			cmd.MaxUses != nil && *cmd.MaxUses == 100 && cmd.MaxUsesPerUser == 1
	})).Return(createTestPromo(t), nil)
	handler := newTestPromoHandler(engine)

	body := `{"code":"SAVE20","discount_type":"PERCENTAGE","discount_value":20,
		"valid_from":"2026-01-01T00:00:00Z","valid_until":"2026-12-31T00:00:00Z",
		"max_uses":100,"max_uses_per_user":1}`
	c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes", body)
	testutil.SetAdminContext(c, 1)
	handler.CreatePromo(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	engine.AssertExpectations(t)

	c, w = testutil.NewTestContext(http.MethodPost, "/api/v1/promo-codes", `{"code":"X","max_uses":0}`)
	testutil.SetAdminContext(c, 1)
	handler.CreatePromo(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromoHandler_UpdatePromo(t *testing.T) {
	engine := &mockPromoEngine{}
	engine.On("UpdatePromo", mock.Anything, mock.MatchedBy(func(cmd usecases.UpdatePromoCommand) bool {
		return cmd.ID == 3 && cmd.ClearMaxUses && cmd.IsActive != nil && !*cmd.IsActive && cmd.Description == nil
	})).Return(createTestPromo(t), nil)
	handler := newTestPromoHandler(engine)

	c, w := testutil.NewTestContext(http.MethodPut, "/api/v1/promo-codes/3", `{"clear_max_uses":true,"is_active":false}`)
	testutil.SetAdminContext(c, 1)
	testutil.SetURLParam(c, "id", "3")
	handler.UpdatePromo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	engine.AssertExpectations(t)
}

func TestPromoHandler_DeleteAndGet(t *testing.T) {
	engine := &mockPromoEngine{}
	engine.On("DeletePromo", mock.Anything, uint(3)).Return(nil)
	engine.On("GetPromo", mock.Anything, uint(4)).Return(nil, errors.NewNotFoundError("promo code not found"))
	handler := newTestPromoHandler(engine)

	c, w := testutil.NewTestContext(http.MethodDelete, "/api/v1/promo-codes/3", nil)
	testutil.SetURLParam(c, "id", "3")
	handler.DeletePromo(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testutil.NewTestContext(http.MethodGet, "/api/v1/promo-codes/4", nil)
	testutil.SetURLParam(c, "id", "4")
	handler.GetPromo(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	engine.AssertExpectations(t)
}

func TestPromoHandler_ListPromos(t *testing.T) {
	active := true
	engine := &mockPromoEngine{}
	engine.On("ListPromos", mock.Anything, promo.Filter{IsActive: &active, Code: "save", Page: 1, PageSize: 20}).
		Return([]*promo.PromoCode{createTestPromo(t)}, int64(1), nil)
	handler := newTestPromoHandler(engine)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/promo-codes", nil)
	testutil.SetQueryParams(c, map[string]string{"is_active": "true", "code": "save"})
	handler.ListPromos(c)

	assert.Equal(t, http.StatusOK, w.Code)
	engine.AssertExpectations(t)
}
