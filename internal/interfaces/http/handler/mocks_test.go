package handler

import (
	"context"

	appintegration "github.com/club19/salesos/internal/application/integration"
	appledger "github.com/club19/salesos/internal/application/ledger"
	"github.com/club19/salesos/internal/application/reconciliation"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSaleReader struct {
	mock.Mock
}

func (m *MockSaleReader) Get(ctx context.Context, id uuid.UUID) (*ledger.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Sale), args.Error(1)
}

func (m *MockSaleReader) List(ctx context.Context, filter ledger.SaleFilter) (shared.Paginated[ledger.Sale], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[ledger.Sale]), args.Error(1)
}

type MockSaleTransitioner struct {
	mock.Mock
}

func (m *MockSaleTransitioner) Transition(ctx context.Context, req appledger.TransitionRequest) (*ledger.TransitionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransitionResult), args.Error(1)
}

func (m *MockSaleTransitioner) Advance(ctx context.Context, req appledger.TransitionRequest) (*appledger.AdvanceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.AdvanceResult), args.Error(1)
}

type MockErrorLog struct {
	mock.Mock
}

func (m *MockErrorLog) Get(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ErrorEntry), args.Error(1)
}

func (m *MockErrorLog) List(ctx context.Context, filter ledger.ErrorFilter) (shared.Paginated[ledger.ErrorEntry], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[ledger.ErrorEntry]), args.Error(1)
}

func (m *MockErrorLog) Resolve(ctx context.Context, id uuid.UUID, by string) error {
	return m.Called(ctx, id, by).Error(0)
}

type MockWebhookReceiver struct {
	mock.Mock
}

func (m *MockWebhookReceiver) HandleWebhook(ctx context.Context, delivery reconciliation.WebhookDelivery) (*reconciliation.ReconciliationResult, error) {
	args := m.Called(ctx, delivery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.ReconciliationResult), args.Error(1)
}

func (m *MockWebhookReceiver) MaxPayloadBytes() int64 {
	return m.Called().Get(0).(int64)
}

type MockCredentialHealthReader struct {
	mock.Mock
}

func (m *MockCredentialHealthReader) Health(ctx context.Context) (*appintegration.CredentialHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.CredentialHealth), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}
