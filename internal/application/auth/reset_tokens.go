package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subfinder/api/internal/domain"
	"github.com/subfinder/api/internal/pkg/secret"
	pkgtoken "github.com/subfinder/api/internal/pkg/token"
)

type resetTokenStore interface {
	Put(ctx context.Context, t *domain.ResetToken) error
	GetByUser(ctx context.Context, userID string) (*domain.ResetToken, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// ResetTokenManager owns the lifecycle of the single outstanding
// password-reset secret per user: issue (superseding any prior one), verify,
// consume. Only a bcrypt hash of the raw token is ever persisted.
type ResetTokenManager struct {
	repo   resetTokenStore
	cost   int
	expiry time.Duration
}

func NewResetTokenManager(repo resetTokenStore, cost int, expiry time.Duration) *ResetTokenManager {
	return &ResetTokenManager{repo: repo, cost: cost, expiry: expiry}
}

// IssueFor generates a fresh raw token for the user and stores its hash.
// The write replaces any existing record for the user, so an old raw token
// stops verifying the moment a new one is issued.
func (m *ResetTokenManager) IssueFor(ctx context.Context, userID string) (string, error) {
	raw, err := pkgtoken.NewResetToken()
	if err != nil {
		return "", err
	}
	hash, err := secret.Hash([]byte(raw), m.cost)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	rec := &domain.ResetToken{
		UserID:    userID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(m.expiry).Unix(),
	}
	if err := m.repo.Put(ctx, rec); err != nil {
		return "", err
	}
	return raw, nil
}

// VerifyFor checks the presented raw token against the user's live record.
// "No token issued" surfaces as ErrNotFound so callers can tell it apart from
// a wrong token, which surfaces as ErrInvalidCredential.
func (m *ResetTokenManager) VerifyFor(ctx context.Context, userID, raw string) error {
	rec, err := m.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no reset token exists, go to forgot password first: %w", domain.ErrNotFound)
		}
		return err
	}
	if rec.ExpiresAt < time.Now().Unix() {
		// TTL removal is eventual; treat a stale record as gone.
		if err := m.repo.DeleteByUser(ctx, userID); err != nil {
			slog.Warn("failed to delete expired reset token", "user_id", userID, "err", err)
		}
		return fmt.Errorf("reset token expired: %w", domain.ErrInvalidCredential)
	}
	if !secret.Verify([]byte(raw), rec.TokenHash) {
		return fmt.Errorf("reset token is not valid: %w", domain.ErrInvalidCredential)
	}
	return nil
}

// Consume deletes the user's reset record after a successful password change.
func (m *ResetTokenManager) Consume(ctx context.Context, userID string) error {
	return m.repo.DeleteByUser(ctx, userID)
}
