package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"go.uber.org/zap"
)

// Authenticator runs platform calls with a valid credential
type Authenticator interface {
	WithAuth(ctx context.Context, call func(ctx context.Context, cred *integration.Credential) error) error
}

// ContactResolver maps an invoice contact onto a local buyer. It looks up
// the normalised name first, then the platform contact id. On a local miss
// a contact without an id is searched for by name on the platform and only
// created there when the platform has none.
type ContactResolver struct {
	counterparties ledger.CounterpartyRepository
	platform       integration.AccountingPlatform
	auth           Authenticator
	logger         *zap.Logger
}

// NewContactResolver creates a new ContactResolver
func NewContactResolver(
	counterparties ledger.CounterpartyRepository,
	platform integration.AccountingPlatform,
	auth Authenticator,
	logger *zap.Logger,
) *ContactResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactResolver{
		counterparties: counterparties,
		platform:       platform,
		auth:           auth,
		logger:         logger,
	}
}

// ResolveBuyer returns the buyer for contact, or nil when no name is known for it
func (r *ContactResolver) ResolveBuyer(ctx context.Context, contact integration.Contact) (*ledger.Counterparty, error) {
	if ledger.NormalizeName(contact.Name) == "" && contact.ContactID != "" {
		buyer, err := r.counterparties.FindByExternalContactID(ctx, ledger.CounterpartyBuyer, contact.ContactID)
		if err != nil {
			return nil, fmt.Errorf("find buyer by contact id: %w", err)
		}
		if buyer != nil {
			return buyer, nil
		}
		// Invoice payloads may carry the contact id alone.
		fetched, err := r.fetchContact(ctx, contact.ContactID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, nil
		}
		contact.Name = fetched.Name
	}

	normalized := ledger.NormalizeName(contact.Name)
	if normalized == "" {
		return nil, nil
	}

	buyer, err := r.counterparties.FindByNormalizedName(ctx, ledger.CounterpartyBuyer, normalized)
	if err != nil {
		return nil, fmt.Errorf("find buyer by name: %w", err)
	}
	if buyer != nil {
		if buyer.LinkExternalContact(contact.ContactID) {
			if err := r.counterparties.Save(ctx, buyer); err != nil {
				return nil, fmt.Errorf("link buyer contact: %w", err)
			}
		}
		return buyer, nil
	}

	if contact.ContactID != "" {
		buyer, err = r.counterparties.FindByExternalContactID(ctx, ledger.CounterpartyBuyer, contact.ContactID)
		if err != nil {
			return nil, fmt.Errorf("find buyer by contact id: %w", err)
		}
		if buyer != nil {
			return buyer, nil
		}
	}

	return r.createBuyer(ctx, contact, normalized)
}

func (r *ContactResolver) createBuyer(ctx context.Context, contact integration.Contact, normalized string) (*ledger.Counterparty, error) {
	buyer, err := ledger.NewCounterparty(ledger.CounterpartyBuyer, contact.Name)
	if err != nil {
		return nil, err
	}

	contactID := contact.ContactID
	if contactID == "" {
		contactID, err = r.platformContactID(ctx, buyer.Name)
		if err != nil {
			return nil, err
		}
	}
	buyer.LinkExternalContact(contactID)

	if err := r.counterparties.Save(ctx, buyer); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("save buyer: %w", err)
		}
		// Lost a race with a concurrent delivery for the same buyer.
		existing, ferr := r.counterparties.FindByNormalizedName(ctx, ledger.CounterpartyBuyer, normalized)
		if ferr != nil || existing == nil {
			return nil, fmt.Errorf("save buyer: %w", err)
		}
		return existing, nil
	}

	r.logger.Info("Buyer created from invoice contact",
		zap.String("counterparty_id", buyer.ID.String()),
		zap.String("name", buyer.Name),
		zap.String("contact_id", contactID))
	return buyer, nil
}

// fetchContact loads a contact by platform id. A contact the platform does
// not know resolves to nil.
func (r *ContactResolver) fetchContact(ctx context.Context, contactID string) (*integration.Contact, error) {
	if r.platform == nil || r.auth == nil {
		return nil, nil
	}
	var contact *integration.Contact
	err := r.auth.WithAuth(ctx, func(ctx context.Context, cred *integration.Credential) error {
		found, err := r.platform.GetContact(ctx, cred, contactID)
		if err != nil {
			return err
		}
		contact = found
		return nil
	})
	if errors.Is(err, integration.ErrContactNotFound) || (err == nil && contact == nil) {
		r.logger.Warn("Invoice contact not found on platform", zap.String("contact_id", contactID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get platform contact: %w", err)
	}
	return contact, nil
}

// platformContactID returns the id of the platform contact named name,
// creating the contact when no match exists.
func (r *ContactResolver) platformContactID(ctx context.Context, name string) (string, error) {
	if r.platform == nil || r.auth == nil {
		return "", nil
	}
	var contactID string
	err := r.auth.WithAuth(ctx, func(ctx context.Context, cred *integration.Credential) error {
		found, err := r.platform.FindContactByName(ctx, cred, name)
		if err != nil && !errors.Is(err, integration.ErrContactNotFound) {
			return fmt.Errorf("find platform contact: %w", err)
		}
		if found != nil && found.ContactID != "" {
			contactID = found.ContactID
			return nil
		}
		created, err := r.platform.CreateContact(ctx, cred, name)
		if err != nil {
			return fmt.Errorf("create platform contact: %w", err)
		}
		contactID = created.ContactID
		return nil
	})
	return contactID, err
}
