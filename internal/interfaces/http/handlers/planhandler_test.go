package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	plandto "msgdeck/internal/application/plan/dto"
	"msgdeck/internal/application/plan/usecases"
	"msgdeck/internal/domain/plan"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/interfaces/http/handlers/testutil"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/services/markdown"
)

// =====================================================================
// Mock catalog
// =====================================================================

type mockPlanCatalog struct {
	mock.Mock
}

func (m *mockPlanCatalog) ListActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]*plan.Plan)
	return plans, args.Error(1)
}

func (m *mockPlanCatalog) FindByID(ctx context.Context, id uint) (*plan.Plan, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*plan.Plan)
	return p, args.Error(1)
}

func (m *mockPlanCatalog) FindByCode(ctx context.Context, code string) (*plan.Plan, error) {
	args := m.Called(ctx, code)
	p, _ := args.Get(0).(*plan.Plan)
	return p, args.Error(1)
}

func (m *mockPlanCatalog) GetPricing(ctx context.Context, id uint, cycle string) (*plandto.PricingDTO, error) {
	args := m.Called(ctx, id, cycle)
	p, _ := args.Get(0).(*plandto.PricingDTO)
	return p, args.Error(1)
}

func (m *mockPlanCatalog) ListPlans(ctx context.Context, filter plan.Filter) ([]*plan.Plan, int64, error) {
	args := m.Called(ctx, filter)
	plans, _ := args.Get(0).([]*plan.Plan)
	return plans, args.Get(1).(int64), args.Error(2)
}

func (m *mockPlanCatalog) CreatePlan(ctx context.Context, cmd usecases.CreatePlanCommand) (*plan.Plan, error) {
	args := m.Called(ctx, cmd)
	p, _ := args.Get(0).(*plan.Plan)
	return p, args.Error(1)
}

func (m *mockPlanCatalog) UpdatePlan(ctx context.Context, cmd usecases.UpdatePlanCommand) (*plan.Plan, error) {
	args := m.Called(ctx, cmd)
	p, _ := args.Get(0).(*plan.Plan)
	return p, args.Error(1)
}

// =====================================================================
// Test helpers
// =====================================================================

func createTestPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlan(plan.CreateParams{
		Code:        "growth",
		Name:        "Growth",
		Description: "For **growing** teams",
		Prices: vo.Prices{
			vo.BillingCycleMonthly: decimal.RequireFromString("49.00"),
			vo.BillingCycleYearly:  decimal.RequireFromString("490.00"),
		},
		Limits:    vo.Limits{vo.ResourceContacts: vo.LimitOf(5000), vo.ResourceMessages: vo.Unlimited()},
		IsActive:  true,
		IsVisible: true,
	})
	require.NoError(t, err)
	return p
}

func newTestPlanHandler(catalog planCatalog) *PlanHandler {
	return NewPlanHandler(catalog, markdown.NewMarkdownService(), testutil.NewMockLogger())
}

// =====================================================================
// Tests
// =====================================================================

func TestPlanHandler_ListPublicPlans(t *testing.T) {
	catalog := &mockPlanCatalog{}
	catalog.On("ListActivePlans", mock.Anything).Return([]*plan.Plan{createTestPlan(t)}, nil)
	handler := newTestPlanHandler(catalog)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans", nil)
	handler.ListPublicPlans(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)

	var plans []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "growth", plans[0]["code"])
	assert.Contains(t, plans[0]["description_html"], "<strong>growing</strong>")
	limits := plans[0]["limits"].(map[string]any)
	assert.EqualValues(t, -1, limits["messages"])
}

func TestPlanHandler_GetPlan(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		catalog := &mockPlanCatalog{}
		catalog.On("FindByID", mock.Anything, uint(7)).Return(createTestPlan(t), nil)
		handler := newTestPlanHandler(catalog)

		c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans/7", nil)
		testutil.SetURLParam(c, "id", "7")
		handler.GetPlan(c)

		assert.Equal(t, http.StatusOK, w.Code)
		catalog.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		catalog := &mockPlanCatalog{}
		catalog.On("FindByID", mock.Anything, uint(9)).Return(nil, errors.NewNotFoundError("plan not found"))
		handler := newTestPlanHandler(catalog)

		c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans/9", nil)
		testutil.SetURLParam(c, "id", "9")
		handler.GetPlan(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		assert.Equal(t, "not_found", resp.Error.Type)
	})

	t.Run("bad id", func(t *testing.T) {
		handler := newTestPlanHandler(&mockPlanCatalog{})

		c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans/abc", nil)
		testutil.SetURLParam(c, "id", "abc")
		handler.GetPlan(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPlanHandler_GetPlanByCode(t *testing.T) {
	catalog := &mockPlanCatalog{}
	catalog.On("FindByCode", mock.Anything, "Growth").Return(createTestPlan(t), nil)
	handler := newTestPlanHandler(catalog)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans/code/Growth", nil)
	testutil.SetURLParam(c, "code", "Growth")
	handler.GetPlanByCode(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlanHandler_GetPricing(t *testing.T) {
	catalog := &mockPlanCatalog{}
	catalog.On("GetPricing", mock.Anything, uint(1), "yearly").Return(&plandto.PricingDTO{
		PlanID:       1,
		PlanName:     "Growth",
		BillingCycle: "YEARLY",
		Price:        decimal.RequireFromString("490.00"),
		Currency:     "USD",
	}, nil)
	catalog.On("GetPricing", mock.Anything, uint(1), "weekly").
		Return(nil, errors.NewValidationError("invalid billing cycle"))
	handler := newTestPlanHandler(catalog)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/plans/1/pricing", nil)
	testutil.SetURLParam(c, "id", "1")
	testutil.SetQueryParams(c, map[string]string{"billingCycle": "yearly"})
	handler.GetPricing(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var pricing map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &pricing))
	assert.Equal(t, "YEARLY", pricing["billing_cycle"])
	assert.EqualValues(t, 490, pricing["price"])

	c, w = testutil.NewTestContext(http.MethodGet, "/api/v1/plans/1/pricing", nil)
	testutil.SetURLParam(c, "id", "1")
	testutil.SetQueryParams(c, map[string]string{"billing_cycle": "weekly"})
	handler.GetPricing(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanHandler_ListPlans_Filters(t *testing.T) {
	active := false
	catalog := &mockPlanCatalog{}
	catalog.On("ListPlans", mock.Anything, plan.Filter{IsActive: &active, Family: "team", Page: 2, PageSize: 10}).
		Return([]*plan.Plan{createTestPlan(t)}, int64(11), nil)
	handler := newTestPlanHandler(catalog)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/admin/plans", nil)
	testutil.SetQueryParams(c, map[string]string{"is_active": "false", "family": "team", "page": "2", "page_size": "10"})
	handler.ListPlans(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var list testutil.ListData
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, int64(11), list.Total)
	assert.Equal(t, 2, list.TotalPages)
	catalog.AssertExpectations(t)
}

func TestPlanHandler_CreatePlan(t *testing.T) {
	t.Run("success defaults to active and visible", func(t *testing.T) {
		catalog := &mockPlanCatalog{}
		catalog.On("CreatePlan", mock.Anything, mock.MatchedBy(func(cmd usecases.CreatePlanCommand) bool {
			return cmd.Code == "growth" && cmd.IsActive && cmd.IsVisible &&
				cmd.Prices["monthly"].Equal(decimal.RequireFromString("49.00")) &&
				cmd.Limits["messages"] == -1
		})).Return(createTestPlan(t), nil)
		handler := newTestPlanHandler(catalog)

		body := `{"code":"growth","name":"Growth","prices":{"monthly":"49.00"},"limits":{"messages":-1}}`
		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/plans", body)
		handler.CreatePlan(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		catalog.AssertExpectations(t)
	})

	t.Run("missing required fields", func(t *testing.T) {
		handler := newTestPlanHandler(&mockPlanCatalog{})

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/plans", map[string]string{"name": "Growth"})
		handler.CreatePlan(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "validation_error", resp.Error.Type)
	})

	t.Run("duplicate code", func(t *testing.T) {
		catalog := &mockPlanCatalog{}
		catalog.On("CreatePlan", mock.Anything, mock.Anything).
			Return(nil, errors.NewConflictError("plan code already exists", "growth"))
		handler := newTestPlanHandler(catalog)

		body := `{"code":"growth","name":"Growth","prices":{"monthly":10}}`
		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/plans", body)
		handler.CreatePlan(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPlanHandler_UpdatePlan(t *testing.T) {
	catalog := &mockPlanCatalog{}
	catalog.On("UpdatePlan", mock.Anything, mock.MatchedBy(func(cmd usecases.UpdatePlanCommand) bool {
		return cmd.ID == 3 && cmd.Name != nil && *cmd.Name == "Growth Plus" && cmd.IsVisible != nil && !*cmd.IsVisible && cmd.Description == nil
	})).Return(createTestPlan(t), nil)
	handler := newTestPlanHandler(catalog)

	c, w := testutil.NewTestContext(http.MethodPut, "/api/v1/plans/3", `{"name":"Growth Plus","is_visible":false}`)
	testutil.SetURLParam(c, "id", "3")
	handler.UpdatePlan(c)

	assert.Equal(t, http.StatusOK, w.Code)
	catalog.AssertExpectations(t)
}
