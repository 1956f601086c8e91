package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCounterpartyRepository is a mock implementation of ledger.CounterpartyRepository
type MockCounterpartyRepository struct {
	mock.Mock
}

func (m *MockCounterpartyRepository) FindByNormalizedName(ctx context.Context, kind ledger.CounterpartyKind, normalized string) (*ledger.Counterparty, error) {
	args := m.Called(ctx, kind, normalized)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

func (m *MockCounterpartyRepository) FindByExternalContactID(ctx context.Context, kind ledger.CounterpartyKind, contactID string) (*ledger.Counterparty, error) {
	args := m.Called(ctx, kind, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Counterparty), args.Error(1)
}

func (m *MockCounterpartyRepository) Save(ctx context.Context, c *ledger.Counterparty) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func newBuyer(t *testing.T, name string) *ledger.Counterparty {
	t.Helper()
	buyer, err := ledger.NewCounterparty(ledger.CounterpartyBuyer, name)
	require.NoError(t, err)
	return buyer
}

func newTestResolver(repo *MockCounterpartyRepository, platform *MockAccountingPlatform) *ContactResolver {
	auth := staticAuth{cred: &integration.Credential{Identity: "default", AccessToken: "access"}}
	return NewContactResolver(repo, platform, auth, nil)
}

func TestContactResolver_ResolveBuyer(t *testing.T) {
	ctx := context.Background()

	t.Run("blank name resolves to nothing", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "   "})
		require.NoError(t, err)
		assert.Nil(t, buyer)
		repo.AssertNotCalled(t, "FindByNormalizedName", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("name match links the contact id", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		existing := newBuyer(t, "Jane Doe")

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(existing, nil)
		repo.On("Save", ctx, existing).Return(nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-1", Name: "  JANE   Doe "})
		require.NoError(t, err)
		assert.Same(t, existing, buyer)
		assert.Equal(t, "c-1", buyer.ExternalContactID)
		repo.AssertExpectations(t)
	})

	t.Run("name match with the same contact id is not saved again", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		existing := newBuyer(t, "Jane Doe")
		existing.ExternalContactID = "c-1"

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(existing, nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-1", Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Same(t, existing, buyer)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("falls back to the contact id", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		existing := newBuyer(t, "Jane Doe-Smith")
		existing.ExternalContactID = "c-1"

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-1").Return(existing, nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-1", Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Same(t, existing, buyer)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("creates a local buyer for a known contact", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-1").Return(nil, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(c *ledger.Counterparty) bool {
			return c.Name == "Jane Doe" && c.ExternalContactID == "c-1" && c.Kind == ledger.CounterpartyBuyer
		})).Return(nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-1", Name: "Jane Doe"})
		require.NoError(t, err)
		require.NotNil(t, buyer)
		assert.Equal(t, "jane doe", buyer.NormalizedName)
		platform.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("creates the platform contact when it has no id", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		platform.On("FindContactByName", ctx, mock.Anything, "Jane Doe").Return(nil, integration.ErrContactNotFound)
		platform.On("CreateContact", ctx, mock.Anything, "Jane Doe").
			Return(&integration.Contact{ContactID: "c-new", Name: "Jane Doe"}, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Equal(t, "c-new", buyer.ExternalContactID)
		repo.AssertNotCalled(t, "FindByExternalContactID", mock.Anything, mock.Anything, mock.Anything)
		platform.AssertExpectations(t)
	})

	t.Run("platform failure is returned", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		platform.On("FindContactByName", ctx, mock.Anything, "Jane Doe").Return(nil, integration.ErrContactNotFound)
		platform.On("CreateContact", ctx, mock.Anything, "Jane Doe").Return(nil, integration.ErrPlatformUnavailable)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "Jane Doe"})
		assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
		assert.Nil(t, buyer)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("reuses a platform contact with the same name", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		platform.On("FindContactByName", ctx, mock.Anything, "Jane Doe").
			Return(&integration.Contact{ContactID: "c-existing", Name: "JANE DOE"}, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Equal(t, "c-existing", buyer.ExternalContactID)
		assert.Equal(t, "Jane Doe", buyer.Name)
		platform.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("platform search failure does not create a contact", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil)
		platform.On("FindContactByName", ctx, mock.Anything, "Jane Doe").Return(nil, integration.ErrPlatformRateLimited)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "Jane Doe"})
		assert.ErrorIs(t, err, integration.ErrPlatformRateLimited)
		assert.Nil(t, buyer)
		platform.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("contact id alone is fetched from the platform", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-9").Return(nil, nil)
		platform.On("GetContact", ctx, mock.Anything, "c-9").
			Return(&integration.Contact{ContactID: "c-9", Name: "Ada Lovelace"}, nil)
		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "ada lovelace").Return(nil, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(c *ledger.Counterparty) bool {
			return c.Name == "Ada Lovelace" && c.ExternalContactID == "c-9"
		})).Return(nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-9"})
		require.NoError(t, err)
		require.NotNil(t, buyer)
		assert.Equal(t, "ada lovelace", buyer.NormalizedName)
		platform.AssertNotCalled(t, "FindContactByName", mock.Anything, mock.Anything, mock.Anything)
		platform.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("contact id alone matches a local buyer without a platform call", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		existing := newBuyer(t, "Ada Lovelace")
		existing.ExternalContactID = "c-9"

		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-9").Return(existing, nil)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-9"})
		require.NoError(t, err)
		assert.Same(t, existing, buyer)
		platform.AssertNotCalled(t, "GetContact", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown contact id resolves to nothing", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)

		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-gone").Return(nil, nil)
		platform.On("GetContact", ctx, mock.Anything, "c-gone").Return(nil, integration.ErrContactNotFound)

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-gone"})
		require.NoError(t, err)
		assert.Nil(t, buyer)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("lost insert race returns the winner", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		winner := newBuyer(t, "Jane Doe")

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, nil).Once()
		repo.On("FindByExternalContactID", ctx, ledger.CounterpartyBuyer, "c-1").Return(nil, nil)
		repo.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)
		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(winner, nil).Once()

		buyer, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{ContactID: "c-1", Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Same(t, winner, buyer)
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		repo := new(MockCounterpartyRepository)
		platform := new(MockAccountingPlatform)
		dbErr := errors.New("connection reset")

		repo.On("FindByNormalizedName", ctx, ledger.CounterpartyBuyer, "jane doe").Return(nil, dbErr)

		_, err := newTestResolver(repo, platform).ResolveBuyer(ctx, integration.Contact{Name: "Jane Doe"})
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "find buyer by name")
	})
}
