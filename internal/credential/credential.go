// Package credential manages soulbound goal credentials.
//
// A credential certifies that an owner committed to a goal. Exactly one
// credential exists per (goal, owner address), metadata is immutable once
// minted, and no transfer entry point succeeds: the implicit mint from the
// zero address is the only way a credential changes hands.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/identity"
	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// ZeroAddress is the implicit mint source.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Receipt reports the outcome of a ledger mint submission.
type Receipt struct {
	TokenID string
	TxHash  string
}

// LedgerClient submits mint transactions to the external credential ledger.
type LedgerClient interface {
	SubmitMint(ctx context.Context, to, goalID, metadataURI string) (Receipt, error)
}

// Service enforces the soulbound invariants on top of a CredentialStore.
// The ledger client may be nil, in which case minting degrades to a
// "credential not minted" outcome instead of failing.
type Service struct {
	store       storage.CredentialStore
	ledger      LedgerClient
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService creates a credential service with default dependencies.
func NewService(store storage.CredentialStore, ledger LedgerClient) *Service {
	return &Service{
		store:       store,
		ledger:      ledger,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// Mint mints the credential for (goalID, to). Minting twice for the same
// pair is a safe no-op that returns the existing record; the boolean
// reports whether this call created it. An unconfigured ledger yields a
// CodeCredentialLedgerOffline domain error so callers can degrade.
func (s *Service) Mint(ctx context.Context, to, goalID, metadataURI string) (storage.CredentialRecord, bool, error) {
	if s == nil || s.store == nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("credential store is not configured")
	}
	if err := identity.ValidateAddress(to); err != nil {
		return storage.CredentialRecord{}, false, err
	}
	if strings.TrimSpace(goalID) == "" {
		return storage.CredentialRecord{}, false, fmt.Errorf("goal id is required")
	}

	// Check before submitting so a retry after a lost response never mints
	// a second token on the ledger.
	existing, err := s.store.GetCredentialByGoal(ctx, goalID, to)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.CredentialRecord{}, false, fmt.Errorf("check existing credential: %w", err)
	}

	if s.ledger == nil {
		return storage.CredentialRecord{}, false, apperrors.New(
			apperrors.CodeCredentialLedgerOffline,
			"credential ledger is not configured",
		)
	}

	receipt, err := s.ledger.SubmitMint(ctx, to, goalID, metadataURI)
	if err != nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("submit mint: %w", err)
	}

	tokenID := strings.TrimSpace(receipt.TokenID)
	if tokenID == "" {
		tokenID, err = s.idGenerator()
		if err != nil {
			return storage.CredentialRecord{}, false, fmt.Errorf("generate credential id: %w", err)
		}
	}

	record := storage.CredentialRecord{
		ID:           tokenID,
		OwnerAddress: to,
		GoalID:       goalID,
		MetadataURI:  metadataURI,
		MintTx:       receipt.TxHash,
		MintedAt:     s.clock().UTC(),
	}
	stored, created, err := s.store.InsertCredentialIfAbsent(ctx, record)
	if err != nil {
		return storage.CredentialRecord{}, false, fmt.Errorf("persist credential: %w", err)
	}
	return stored, created, nil
}

// Transfer always fails: credentials are soulbound.
func (s *Service) Transfer(ctx context.Context, from, to, tokenID string) error {
	return transferRefused(from)
}

// SafeTransfer always fails: credentials are soulbound. The "safe" variant
// exists only so both ledger entry points share one refusal path.
func (s *Service) SafeTransfer(ctx context.Context, from, to, tokenID string, _ []byte) error {
	return transferRefused(from)
}

func transferRefused(from string) error {
	if from == ZeroAddress {
		// The zero-address path is the mint itself and is handled by Mint;
		// reaching here with it is still a refusal.
		return apperrors.New(apperrors.CodeCredentialNotTransferable, "mint through the Mint entry point")
	}
	return apperrors.New(apperrors.CodeCredentialNotTransferable, "credentials are soulbound")
}
