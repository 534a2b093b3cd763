package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/events"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	outboxDomain "github.com/allisson/orderbus/internal/outbox/domain"
	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
)

type txMarker struct{}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(context.WithValue(ctx, txMarker{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) Create(ctx context.Context, ret *returnsDomain.Return) error {
	return m.Called(ctx, ret).Error(0)
}

func (m *MockReturnRepository) Get(ctx context.Context, id uuid.UUID) (*returnsDomain.Return, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsDomain.Return), args.Error(1)
}

func (m *MockReturnRepository) Update(ctx context.Context, ret *returnsDomain.Return) error {
	return m.Called(ctx, ret).Error(0)
}

func (m *MockReturnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*returnsDomain.Return, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*returnsDomain.Return), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *orderDomain.Order) error {
	return m.Called(ctx, order).Error(0)
}

type MockEventCreator struct {
	mock.Mock
}

func (m *MockEventCreator) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

type returnFixture struct {
	useCase    ReturnUseCase
	returnRepo *MockReturnRepository
	orderRepo  *MockOrderRepository
	staged     []*outboxDomain.OutboxEvent
}

func newReturnFixture(t *testing.T) *returnFixture {
	t.Helper()
	txManager := &MockTxManager{}
	outboxRepo := &MockEventCreator{}
	f := &returnFixture{
		returnRepo: &MockReturnRepository{},
		orderRepo:  &MockOrderRepository{},
	}
	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	outboxRepo.On("Create", mock.MatchedBy(inTx), mock.Anything).
		Run(func(args mock.Arguments) {
			f.staged = append(f.staged, args.Get(1).(*outboxDomain.OutboxEvent))
		}).
		Return(nil)
	f.useCase = NewReturnUseCase(txManager, f.returnRepo, f.orderRepo, outboxRepo, nil)
	return f
}

func (f *returnFixture) stagedTypes() []string {
	types := make([]string, 0, len(f.staged))
	for _, e := range f.staged {
		types = append(types, e.EventType)
	}
	return types
}

func orderAt(t *testing.T, status orderDomain.Status) *orderDomain.Order {
	t.Helper()
	order, _, err := orderDomain.NewOrder(uuid.New(), uuid.New(), 100, "USD", time.Now())
	require.NoError(t, err)
	order.Status = status
	return order
}

func returnFor(t *testing.T, order *orderDomain.Order, status returnsDomain.Status) *returnsDomain.Return {
	t.Helper()
	ret, _, err := returnsDomain.NewReturn(order.ID, order.SellerID, "damaged", time.Now())
	require.NoError(t, err)
	ret.Status = status
	return ret
}

func TestReturnUseCase_Request(t *testing.T) {
	t.Run("DeliveredOrder", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusDelivered)
		f.orderRepo.On("Get", mock.MatchedBy(inTx), order.ID).Return(order, nil)
		f.orderRepo.On("Update", mock.MatchedBy(inTx), order).Return(nil)
		f.returnRepo.On("Create", mock.MatchedBy(inTx), mock.Anything).Return(nil)

		ret, err := f.useCase.Request(context.Background(), order.ID, "damaged")

		require.NoError(t, err)
		assert.Equal(t, returnsDomain.StatusRequested, ret.Status)
		assert.Equal(t, order.SellerID, ret.SellerID)
		assert.Equal(t, orderDomain.StatusReturnRequested, order.Status)
		assert.Equal(t, []string{events.TypeOrderStatusChanged, events.TypeReturnRequested}, f.stagedTypes())
	})

	t.Run("OrderNotDelivered", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusInTransit)
		f.orderRepo.On("Get", mock.Anything, order.ID).Return(order, nil)

		_, err := f.useCase.Request(context.Background(), order.ID, "damaged")

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		f.returnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, f.staged)
	})

	t.Run("BlankReason", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusDelivered)
		f.orderRepo.On("Get", mock.Anything, order.ID).Return(order, nil)

		_, err := f.useCase.Request(context.Background(), order.ID, "")

		assert.ErrorIs(t, err, returnsDomain.ErrInvalidReturn)
		assert.Equal(t, orderDomain.StatusDelivered, order.Status)
	})
}

func TestReturnUseCase_Transition(t *testing.T) {
	t.Run("ApproveLeavesOrder", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusReturnRequested)
		ret := returnFor(t, order, returnsDomain.StatusRequested)
		f.returnRepo.On("Get", mock.Anything, ret.ID).Return(ret, nil)
		f.returnRepo.On("Update", mock.Anything, ret).Return(nil)

		_, err := f.useCase.Transition(context.Background(), ret.ID, returnsDomain.StatusApproved)

		require.NoError(t, err)
		assert.Equal(t, []string{events.TypeReturnStatusChanged}, f.stagedTypes())
		f.orderRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("CompleteMarksOrderReturned", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusReturnRequested)
		ret := returnFor(t, order, returnsDomain.StatusInspecting)
		f.returnRepo.On("Get", mock.Anything, ret.ID).Return(ret, nil)
		f.returnRepo.On("Update", mock.Anything, ret).Return(nil)
		f.orderRepo.On("Get", mock.MatchedBy(inTx), order.ID).Return(order, nil)
		f.orderRepo.On("Update", mock.MatchedBy(inTx), order).Return(nil)

		_, err := f.useCase.Transition(context.Background(), ret.ID, returnsDomain.StatusCompleted)

		require.NoError(t, err)
		assert.Equal(t, orderDomain.StatusReturned, order.Status)
		assert.Equal(t, []string{events.TypeReturnStatusChanged, events.TypeOrderStatusChanged}, f.stagedTypes())
	})

	for _, target := range []returnsDomain.Status{returnsDomain.StatusRejected, returnsDomain.StatusCancelled} {
		t.Run(string(target)+"ReopensOrder", func(t *testing.T) {
			f := newReturnFixture(t)
			order := orderAt(t, orderDomain.StatusReturnRequested)
			from := returnsDomain.StatusRequested
			if target == returnsDomain.StatusCancelled {
				from = returnsDomain.StatusApproved
			}
			ret := returnFor(t, order, from)
			f.returnRepo.On("Get", mock.Anything, ret.ID).Return(ret, nil)
			f.returnRepo.On("Update", mock.Anything, ret).Return(nil)
			f.orderRepo.On("Get", mock.Anything, order.ID).Return(order, nil)
			f.orderRepo.On("Update", mock.Anything, order).Return(nil)

			_, err := f.useCase.Transition(context.Background(), ret.ID, target)

			require.NoError(t, err)
			assert.Equal(t, orderDomain.StatusDelivered, order.Status)
			assert.Len(t, f.staged, 2)
		})
	}

	t.Run("OrderAlreadySettled", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusDelivered)
		ret := returnFor(t, order, returnsDomain.StatusRequested)
		f.returnRepo.On("Get", mock.Anything, ret.ID).Return(ret, nil)
		f.returnRepo.On("Update", mock.Anything, ret).Return(nil)
		f.orderRepo.On("Get", mock.Anything, order.ID).Return(order, nil)

		_, err := f.useCase.Transition(context.Background(), ret.ID, returnsDomain.StatusRejected)

		require.NoError(t, err)
		assert.Equal(t, []string{events.TypeReturnStatusChanged}, f.stagedTypes())
		f.orderRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("IllegalMove", func(t *testing.T) {
		f := newReturnFixture(t)
		order := orderAt(t, orderDomain.StatusReturnRequested)
		ret := returnFor(t, order, returnsDomain.StatusCompleted)
		f.returnRepo.On("Get", mock.Anything, ret.ID).Return(ret, nil)

		_, err := f.useCase.Transition(context.Background(), ret.ID, returnsDomain.StatusCancelled)

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Empty(t, f.staged)
	})
}
