package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/collabflow/collabflow/internal/models"
	"github.com/collabflow/collabflow/pkg/crypto"
	"github.com/collabflow/collabflow/pkg/metrics"
)

var (
	// ErrInvalidCredentials is returned for unknown identifiers and wrong
	// passwords alike, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrInvalidRefreshToken indicates no stored record matches the presented token.
	ErrInvalidRefreshToken = errors.New("session: invalid refresh token")
	// ErrRefreshTokenExpired signals that a stored refresh token has reached its expiry.
	ErrRefreshTokenExpired = errors.New("session: refresh token expired")
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates login, refresh rotation, and logout. Each login
// creates its own refresh-token row; concurrent logins from multiple devices
// do not invalidate each other.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		now:        clock,
	}, nil
}

// Authenticate resolves the identifier as a username first, falling back to
// email, verifies the password, and issues a fresh token pair with a persisted
// refresh-token record.
func (s *SessionService) Authenticate(ctx context.Context, identifier, password string) (TokenPair, *models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "username = ?", identifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Take(&user, "email = ?", strings.ToLower(identifier)).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: store refresh token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	metrics.ActiveRefreshTokens.Inc()

	return pair, &user, nil
}

// Refresh rotates the presented refresh token. The stored row is overwritten
// with a new token value and extended expiry, so the old string is permanently
// invalid the instant rotation commits. An expired row is deleted on
// presentation and a follow-up attempt with the same string reports it as
// invalid rather than expired.
func (s *SessionService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		return TokenPair{}, ErrInvalidRefreshToken
	}

	var pair TokenPair
	var reaped bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&record, "token = ?", presented).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("session service: find refresh token: %w", err)
		}

		now := s.now()

		if record.ExpiresAt.Before(now) {
			// Reap on access, not via a background sweep. The closure must
			// return nil so the delete commits; the sentinel is raised after.
			if err := tx.Delete(&record).Error; err != nil {
				return fmt.Errorf("session service: delete expired token: %w", err)
			}
			reaped = true
			return nil
		}

		rotated, err := s.issuePair(record.UserID)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"token":      rotated.RefreshToken,
			"expires_at": now.Add(s.refreshTTL),
		}
		if err := tx.Model(&record).Updates(updates).Error; err != nil {
			return fmt.Errorf("session service: rotate refresh token: %w", err)
		}

		pair = rotated
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		}
		return TokenPair{}, err
	}
	if reaped {
		metrics.ActiveRefreshTokens.Dec()
		metrics.RefreshRotations.WithLabelValues("expired").Inc()
		return TokenPair{}, ErrRefreshTokenExpired
	}

	metrics.RefreshRotations.WithLabelValues("success").Inc()
	return pair, nil
}

// Logout removes the stored record matching the presented refresh token.
// Absent records are not an error: the token may already have expired and been
// reaped, and logout must stay idempotent.
func (s *SessionService) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}

	result := s.db.WithContext(ctx).Delete(&models.RefreshToken{}, "token = ?", presented)
	if result.Error != nil {
		return fmt.Errorf("session service: delete refresh token: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(result.RowsAffected))
	}
	return nil
}

func (s *SessionService) issuePair(userID string) (TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
