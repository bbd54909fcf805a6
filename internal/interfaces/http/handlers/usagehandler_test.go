package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	usagedto "msgdeck/internal/application/usage/dto"
	"msgdeck/internal/application/usage/usecases"
	"msgdeck/internal/interfaces/http/handlers/testutil"
	"msgdeck/internal/shared/authorization"
	"msgdeck/internal/shared/constants"
	"msgdeck/internal/shared/errors"
)

type mockUsageMeter struct {
	mock.Mock
}

func (m *mockUsageMeter) GetCurrentUsage(ctx context.Context, userID uint) (*usagedto.CurrentUsageDTO, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*usagedto.CurrentUsageDTO)
	return u, args.Error(1)
}

func (m *mockUsageMeter) CheckLimit(ctx context.Context, userID uint, resourceType string) (*usagedto.LimitCheckDTO, error) {
	args := m.Called(ctx, userID, resourceType)
	u, _ := args.Get(0).(*usagedto.LimitCheckDTO)
	return u, args.Error(1)
}

func (m *mockUsageMeter) GetUsageHistory(ctx context.Context, userID uint, months int) ([]*usagedto.UsageDTO, error) {
	args := m.Called(ctx, userID, months)
	u, _ := args.Get(0).([]*usagedto.UsageDTO)
	return u, args.Error(1)
}

func (m *mockUsageMeter) IncrementUsage(ctx context.Context, cmd usecases.AdjustUsageCommand) (*usagedto.UsageDTO, error) {
	args := m.Called(ctx, cmd)
	u, _ := args.Get(0).(*usagedto.UsageDTO)
	return u, args.Error(1)
}

func (m *mockUsageMeter) DecrementUsage(ctx context.Context, cmd usecases.AdjustUsageCommand) (*usagedto.UsageDTO, error) {
	args := m.Called(ctx, cmd)
	u, _ := args.Get(0).(*usagedto.UsageDTO)
	return u, args.Error(1)
}

func TestUsageHandler_CheckLimit(t *testing.T) {
	tests := []struct {
		name       string
		check      *usagedto.LimitCheckDTO
		err        error
		wantStatus int
	}{
		{
			name:       "unlimited",
			check:      &usagedto.LimitCheckDTO{ResourceType: "messages", CanProceed: true, Current: 10, Limit: -1, Remaining: -1, Unlimited: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "at limit",
			check:      &usagedto.LimitCheckDTO{ResourceType: "messages", CanProceed: false, Current: 100, Limit: 100, Remaining: 0},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no subscription",
			err:        errors.NewNotFoundError("no active subscription"),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter := &mockUsageMeter{}
			meter.On("CheckLimit", mock.Anything, uint(42), "messages").Return(tt.check, tt.err)
			handler := NewUsageHandler(meter, testutil.NewMockLogger())

			c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/usage/check-limit/messages", nil)
			testutil.SetAuthContext(c, 42)
			testutil.SetURLParam(c, "type", "messages")
			handler.CheckLimit(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check == nil {
				return
			}
			var resp testutil.APIResponse
			require.NoError(t, testutil.ParseResponse(w, &resp))
			var got usagedto.LimitCheckDTO
			require.NoError(t, json.Unmarshal(resp.Data, &got))
			assert.Equal(t, *tt.check, got)
		})
	}
}

func TestUsageHandler_GetHistory(t *testing.T) {
	meter := &mockUsageMeter{}
	meter.On("GetUsageHistory", mock.Anything, uint(42), 3).Return([]*usagedto.UsageDTO{{Month: "2026-03"}}, nil)
	meter.On("GetUsageHistory", mock.Anything, uint(42), 0).Return([]*usagedto.UsageDTO{}, nil)
	handler := NewUsageHandler(meter, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/api/v1/usage/history", nil)
	testutil.SetAuthContext(c, 42)
	testutil.SetQueryParams(c, map[string]string{"months": "3"})
	handler.GetHistory(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testutil.NewTestContext(http.MethodGet, "/api/v1/usage/history", nil)
	testutil.SetAuthContext(c, 42)
	handler.GetHistory(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testutil.NewTestContext(http.MethodGet, "/api/v1/usage/history", nil)
	testutil.SetAuthContext(c, 42)
	testutil.SetQueryParams(c, map[string]string{"months": "six"})
	handler.GetHistory(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	meter.AssertExpectations(t)
}

func TestUsageHandler_Increment(t *testing.T) {
	t.Run("own counters", func(t *testing.T) {
		meter := &mockUsageMeter{}
		meter.On("IncrementUsage", mock.Anything, usecases.AdjustUsageCommand{
			UserID: 42, ResourceType: "messages", Category: "marketing", Count: 3,
		}).Return(&usagedto.UsageDTO{UserID: 42, Counters: map[string]int64{"messages": 3}}, nil)
		handler := NewUsageHandler(meter, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/usage/increment",
			`{"resource_type":"messages","category":"marketing","count":3}`)
		testutil.SetAuthContext(c, 42)
		handler.Increment(c)

		assert.Equal(t, http.StatusOK, w.Code)
		meter.AssertExpectations(t)
	})

	t.Run("user cannot touch another user", func(t *testing.T) {
		handler := NewUsageHandler(&mockUsageMeter{}, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/usage/increment",
			`{"user_id":7,"resource_type":"contacts"}`)
		testutil.SetAuthContext(c, 42)
		handler.Increment(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("service acts for a user", func(t *testing.T) {
		meter := &mockUsageMeter{}
		meter.On("IncrementUsage", mock.Anything, usecases.AdjustUsageCommand{UserID: 7, ResourceType: "contacts"}).
			Return(&usagedto.UsageDTO{UserID: 7}, nil)
		handler := NewUsageHandler(meter, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/usage/increment",
			`{"user_id":7,"resource_type":"contacts"}`)
		c.Set(constants.ContextKeyUserID, uint(900))
		c.Set(constants.ContextKeyUserRole, string(authorization.RoleService))
		handler.Increment(c)

		assert.Equal(t, http.StatusOK, w.Code)
		meter.AssertExpectations(t)
	})

	t.Run("missing resource type", func(t *testing.T) {
		handler := NewUsageHandler(&mockUsageMeter{}, testutil.NewMockLogger())

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/usage/increment", `{"count":1}`)
		testutil.SetAuthContext(c, 42)
		handler.Increment(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUsageHandler_Decrement(t *testing.T) {
	meter := &mockUsageMeter{}
	meter.On("DecrementUsage", mock.Anything, usecases.AdjustUsageCommand{UserID: 42, ResourceType: "contacts", Count: 2}).
		Return(&usagedto.UsageDTO{UserID: 42}, nil)
	handler := NewUsageHandler(meter, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/usage/decrement", `{"resource_type":"contacts","count":2}`)
	testutil.SetAuthContext(c, 42)
	handler.Decrement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	meter.AssertExpectations(t)
}
