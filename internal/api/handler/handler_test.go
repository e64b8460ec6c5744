// internal/api/handler/handler_test.go
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/service"
	"accrual-engine/internal/util"
)

// MockTaskService is a mock implementation of service.DailyTaskAccrual.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) RemainingTasks(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskService) CompleteTask(ctx context.Context, accountID int64) (*service.TaskReward, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TaskReward), args.Error(1)
}

// MockWithdrawalService is a mock implementation of service.WithdrawalGate.
type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) AvailableForWithdrawal(ctx context.Context, accountID int64, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, currency, destination string) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, accountID, amount, currency, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalService) ApproveWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, callerID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalService) RejectWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, callerID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalService) ListWithdrawals(ctx context.Context, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.WithdrawalRequest), args.Get(1).(int64), args.Error(2)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serve routes the request through a chi router so URL parameters resolve.
func serve(method, path string, body string, headers map[string]string, register func(r chi.Router)) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	register(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTaskHandlerRemaining(t *testing.T) {
	t.Run("ReturnsCount", func(t *testing.T) {
		mockSvc := new(MockTaskService)
		h := NewTaskHandler(mockSvc, discardLogger())
		mockSvc.On("RemainingTasks", mock.Anything, int64(7)).Return(2, nil).Once()

		rec := serve(http.MethodGet, "/accounts/7/tasks", "", nil, func(r chi.Router) {
			r.Get("/accounts/{accountID}/tasks", h.Remaining)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, float64(2), payload["remaining_tasks"])
	})

	t.Run("BadAccountID", func(t *testing.T) {
		h := NewTaskHandler(new(MockTaskService), discardLogger())

		rec := serve(http.MethodGet, "/accounts/abc/tasks", "", nil, func(r chi.Router) {
			r.Get("/accounts/{accountID}/tasks", h.Remaining)
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandlerComplete(t *testing.T) {
	t.Run("ReturnsReward", func(t *testing.T) {
		mockSvc := new(MockTaskService)
		h := NewTaskHandler(mockSvc, discardLogger())
		reward := &service.TaskReward{TasksCompleted: 1, Quota: 3}
		mockSvc.On("CompleteTask", mock.Anything, int64(7)).Return(reward, nil).Once()

		rec := serve(http.MethodPost, "/accounts/7/tasks/complete", "", nil, func(r chi.Router) {
			r.Post("/accounts/{accountID}/tasks/complete", h.Complete)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		var payload service.TaskReward
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, 1, payload.TasksCompleted)
		assert.Equal(t, 3, payload.Quota)
	})

	t.Run("QuotaExhaustedMapsTo429", func(t *testing.T) {
		mockSvc := new(MockTaskService)
		h := NewTaskHandler(mockSvc, discardLogger())
		mockSvc.On("CompleteTask", mock.Anything, int64(7)).Return(nil, util.ErrQuotaExhausted).Once()

		rec := serve(http.MethodPost, "/accounts/7/tasks/complete", "", nil, func(r chi.Router) {
			r.Post("/accounts/{accountID}/tasks/complete", h.Complete)
		})

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestWithdrawalHandlerRequest(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		mockSvc := new(MockWithdrawalService)
		h := NewWithdrawalHandler(mockSvc, discardLogger())
		request := domain.NewWithdrawalRequest(7, decimal.NewFromInt(20), "USDT", "TRC20:addr")
		mockSvc.On("RequestWithdrawal", mock.Anything, int64(7),
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(20)) }),
			"USDT", "TRC20:addr").Return(request, nil).Once()

		body := `{"amount": "20", "currency": "USDT", "destination": "TRC20:addr"}`
		rec := serve(http.MethodPost, "/accounts/7/withdrawals", body, nil, func(r chi.Router) {
			r.Post("/accounts/{accountID}/withdrawals", h.Request)
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		var payload domain.WithdrawalRequest
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, domain.WithdrawalStatusPending, payload.Status)
	})

	t.Run("PendingConflictMapsTo409", func(t *testing.T) {
		mockSvc := new(MockWithdrawalService)
		h := NewWithdrawalHandler(mockSvc, discardLogger())
		mockSvc.On("RequestWithdrawal", mock.Anything, int64(7), mock.Anything, "USDT", "").
			Return(nil, util.ErrPendingWithdrawalExists).Once()

		body := `{"amount": "20", "currency": "USDT"}`
		rec := serve(http.MethodPost, "/accounts/7/withdrawals", body, nil, func(r chi.Router) {
			r.Post("/accounts/{accountID}/withdrawals", h.Request)
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		h := NewWithdrawalHandler(new(MockWithdrawalService), discardLogger())

		rec := serve(http.MethodPost, "/accounts/7/withdrawals", "{not json", nil, func(r chi.Router) {
			r.Post("/accounts/{accountID}/withdrawals", h.Request)
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWithdrawalHandlerApprove(t *testing.T) {
	t.Run("AdminApproves", func(t *testing.T) {
		mockSvc := new(MockWithdrawalService)
		h := NewWithdrawalHandler(mockSvc, discardLogger())
		request := domain.NewWithdrawalRequest(7, decimal.NewFromInt(20), "USDT", "TRC20:addr")
		request.Status = domain.WithdrawalStatusApproved
		mockSvc.On("ApproveWithdrawal", mock.Anything, int64(1), request.ID).Return(request, nil).Once()

		rec := serve(http.MethodPost, "/admin/withdrawals/"+request.ID.String()+"/approve", "",
			map[string]string{"X-Account-ID": "1"}, func(r chi.Router) {
				r.Post("/admin/withdrawals/{requestID}/approve", h.Approve)
			})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingCallerHeader", func(t *testing.T) {
		h := NewWithdrawalHandler(new(MockWithdrawalService), discardLogger())
		id := uuid.New()

		rec := serve(http.MethodPost, "/admin/withdrawals/"+id.String()+"/approve", "", nil, func(r chi.Router) {
			r.Post("/admin/withdrawals/{requestID}/approve", h.Approve)
		})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("NonAdminCaller", func(t *testing.T) {
		mockSvc := new(MockWithdrawalService)
		h := NewWithdrawalHandler(mockSvc, discardLogger())
		id := uuid.New()
		mockSvc.On("ApproveWithdrawal", mock.Anything, int64(9), id).Return(nil, util.ErrUnauthorized).Once()

		rec := serve(http.MethodPost, "/admin/withdrawals/"+id.String()+"/approve", "",
			map[string]string{"X-Account-ID": "9"}, func(r chi.Router) {
				r.Post("/admin/withdrawals/{requestID}/approve", h.Approve)
			})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
