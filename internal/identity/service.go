package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// Service manages owner wallets on top of a WalletStore.
type Service struct {
	store storage.WalletStore
	clock func() time.Time
}

// NewService creates a wallet service with default dependencies.
func NewService(store storage.WalletStore) *Service {
	return &Service{store: store, clock: time.Now}
}

// EnsureWallet returns the owner wallet, creating one on first use. The
// recovery phrase is non-empty only when the wallet was just created; it is
// never stored and cannot be recovered afterwards.
func (s *Service) EnsureWallet(ctx context.Context, owner string) (storage.WalletRecord, string, error) {
	if s == nil || s.store == nil {
		return storage.WalletRecord{}, "", fmt.Errorf("wallet store is not configured")
	}

	existing, err := s.store.GetWallet(ctx, owner)
	if err == nil {
		return existing, "", nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.WalletRecord{}, "", fmt.Errorf("get wallet: %w", err)
	}

	wallet, err := NewWallet(owner)
	if err != nil {
		return storage.WalletRecord{}, "", fmt.Errorf("create wallet: %w", err)
	}
	record := storage.WalletRecord{
		Owner:     wallet.Owner,
		Address:   wallet.Address,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.PutWallet(ctx, record); err != nil {
		return storage.WalletRecord{}, "", fmt.Errorf("persist wallet: %w", err)
	}
	return record, wallet.RecoveryPhrase, nil
}
