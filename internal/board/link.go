package board

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage"
)

// ErrNotLinked reports that the owner has no usable board link.
var ErrNotLinked = apperrors.New(apperrors.CodeBoardNotLinked, "no board account is linked")

// ErrLinkFlowDisabled reports that the grant-based authorization flow is
// not configured for this deployment.
var ErrLinkFlowDisabled = errors.New("board link grant flow is not configured")

// LinkService resolves per-owner board adapters from stored link tokens.
type LinkService struct {
	store      storage.BoardLinkStore
	apiKey     string
	clock      func() time.Time
	grants     *LinkGrantConfig
	newAdapter func(apiKey, token string) Adapter
}

// NewLinkService creates a link service backed by the given store. The
// apiKey identifies this application to the board collaborator.
func NewLinkService(store storage.BoardLinkStore, apiKey string, clock func() time.Time) *LinkService {
	if clock == nil {
		clock = time.Now
	}
	return &LinkService{
		store:  store,
		apiKey: apiKey,
		clock:  clock,
		newAdapter: func(apiKey, token string) Adapter {
			return NewTrelloAdapter(apiKey, token)
		},
	}
}

// WithGrants enables the grant-based authorization flow using the given
// configuration.
func (s *LinkService) WithGrants(cfg LinkGrantConfig) *LinkService {
	if cfg.Now == nil {
		cfg.Now = s.clock
	}
	s.grants = &cfg
	return s
}

// BeginLink issues a short-lived grant binding an authorization round trip
// to the owner. Fails with ErrLinkFlowDisabled when no grant signer is
// configured.
func (s *LinkService) BeginLink(owner string) (string, error) {
	if s.grants == nil || len(s.grants.SigningKey) != ed25519.PrivateKeySize {
		return "", ErrLinkFlowDisabled
	}
	grant, err := IssueLinkGrant(owner, *s.grants)
	if err != nil {
		return "", fmt.Errorf("issue link grant: %w", err)
	}
	return grant, nil
}

// CompleteLink validates the returning grant against the owner, then
// stores the authorized token. The grant must come from a BeginLink call
// for the same owner.
func (s *LinkService) CompleteLink(ctx context.Context, owner, grant, token string) error {
	if s.grants == nil {
		return ErrLinkFlowDisabled
	}
	if _, err := ValidateLinkGrant(grant, owner, *s.grants); err != nil {
		return err
	}
	return s.Link(ctx, owner, token)
}

// Link stores a validated owner token, replacing any previous link.
func (s *LinkService) Link(ctx context.Context, owner, token string) error {
	owner = strings.TrimSpace(owner)
	token = strings.TrimSpace(token)
	if owner == "" || token == "" {
		return apperrors.New(apperrors.CodeLinkGrantInvalid, "owner and token are required")
	}

	record := storage.BoardLinkRecord{
		Owner:    owner,
		Token:    token,
		LinkedAt: s.clock().UTC(),
	}
	if err := s.store.PutBoardLink(ctx, record); err != nil {
		return fmt.Errorf("store board link: %w", err)
	}
	return nil
}

// AdapterFor returns a board adapter authenticated as the owner. It fails
// with ErrNotLinked when no valid link exists.
func (s *LinkService) AdapterFor(ctx context.Context, owner string) (Adapter, error) {
	record, err := s.store.GetBoardLink(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("get board link: %w", err)
	}
	if record.InvalidatedAt != nil {
		return nil, ErrNotLinked
	}
	return s.newAdapter(s.apiKey, record.Token), nil
}

// Invalidate marks the owner link as expired. Called when the collaborator
// rejects the stored token.
func (s *LinkService) Invalidate(ctx context.Context, owner string) error {
	if err := s.store.InvalidateBoardLink(ctx, owner, s.clock().UTC()); err != nil {
		return fmt.Errorf("invalidate board link: %w", err)
	}
	return nil
}

// HandleAdapterError invalidates the owner link when the error is an auth
// expiry, then returns the original error.
func (s *LinkService) HandleAdapterError(ctx context.Context, owner string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuthExpired) {
		if invalidateErr := s.Invalidate(ctx, owner); invalidateErr != nil {
			return fmt.Errorf("invalidate expired link: %w", invalidateErr)
		}
	}
	return err
}
