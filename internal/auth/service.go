package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/lgulliver/craftcms/pkg/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles admin users and their sessions. Sessions are opaque tokens
// stored in the catalog; the cache, when configured, only mirrors them.
type Service struct {
	db     *common.Database
	cache  *common.Cache
	config *config.AuthConfig
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new authentication service. cache may be nil.
func NewService(db *common.Database, cache *common.Cache, config *config.AuthConfig) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		config: config,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for session expiry
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateUser provisions an admin account
func (s *Service) CreateUser(ctx context.Context, email, password string) (*types.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrInvalidInput)
	}

	hashedPassword, err := utils.HashPassword(password, s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", common.ErrInternal, err)
	}

	user := &types.User{
		Email:        email,
		PasswordHash: hashedPassword,
	}

	err = s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if common.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrUserExists, email)
		}
		return nil, fmt.Errorf("%w: failed to create user: %v", common.ErrInternal, err)
	}

	log.Info().Uint("user_id", user.ID).Str("email", email).Msg("user created")
	return user, nil
}

// ListUsers returns every user ordered by id
func (s *Service) ListUsers(ctx context.Context) ([]*types.User, error) {
	var users []*types.User
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Order("id").Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %v", common.ErrInternal, err)
	}
	return users, nil
}

// DeleteUser removes a user together with every session it holds. Cached
// sessions are dropped before the rows go, so a cache failure leaves the
// user intact and the call can be retried.
func (s *Service) DeleteUser(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	tokens, err := s.userSessionTokens(ctx, email)
	if err != nil {
		return err
	}
	if err := s.dropCached(ctx, tokens...); err != nil {
		return err
	}

	var rows int64
	err = s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			var user types.User
			if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
				return err
			}
			// sessions opened since the first lookup
			if err := tx.Model(&types.Session{}).Where("user_id = ?", user.ID).Pluck("token", &tokens).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", user.ID).Delete(&types.Session{}).Error; err != nil {
				return err
			}
			result := tx.Delete(&user)
			rows = result.RowsAffected
			return result.Error
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %s", common.ErrNotFound, email)
		}
		return fmt.Errorf("%w: failed to delete user: %v", common.ErrInternal, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", common.ErrNotFound, email)
	}

	if err := s.dropCached(ctx, tokens...); err != nil {
		return err
	}

	log.Info().Str("email", email).Int("sessions_revoked", len(tokens)).Msg("user deleted")
	return nil
}

// userSessionTokens returns the tokens of every session held by email
func (s *Service) userSessionTokens(ctx context.Context, email string) ([]string, error) {
	var tokens []string
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		var user types.User
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&types.Session{}).Where("user_id = ?", user.ID).Pluck("token", &tokens).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, email)
		}
		return nil, fmt.Errorf("%w: failed to find user sessions: %v", common.ErrInternal, err)
	}
	return tokens, nil
}

// dropCached removes tokens from the cache. A failure is returned, never
// swallowed: a stale cache entry would keep a revoked session alive.
func (s *Service) dropCached(ctx context.Context, tokens ...string) error {
	if s.cache == nil || len(tokens) == 0 {
		return nil
	}
	if err := s.cache.DropSession(ctx, tokens...); err != nil {
		log.Error().Err(err).Int("tokens", len(tokens)).Msg("failed to drop cached sessions")
		return fmt.Errorf("%w: failed to drop cached sessions: %v", common.ErrInternal, err)
	}
	return nil
}

// Authenticate checks a password and returns the user id. An unknown email and
// a wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (uint, error) {
	email = utils.NormalizeEmail(email)

	var user types.User
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("email = ?", email).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Spend the same bcrypt work as a real comparison.
			utils.CheckPassword(password, s.dummyPasswordHash())
			return 0, common.ErrInvalidCredentials
		}
		return 0, fmt.Errorf("%w: failed to find user: %v", common.ErrInternal, err)
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		return 0, common.ErrInvalidCredentials
	}
	return user.ID, nil
}

// CreateSession issues a new session for userID
func (s *Service) CreateSession(ctx context.Context, userID uint) (*types.SessionToken, error) {
	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate token: %v", common.ErrInternal, err)
	}

	now := s.now()
	session := &types.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}

	err = s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create session: %v", common.ErrInternal, err)
	}

	if s.cache != nil {
		cached := common.CachedSession{UserID: userID, ExpiresAt: session.ExpiresAt}
		if err := s.cache.PutSession(ctx, token, cached); err != nil {
			// Log error but don't fail the login
			log.Warn().Err(err).Uint("user_id", userID).Msg("failed to cache session")
		}
	}

	log.Info().Uint("user_id", userID).Time("expires_at", session.ExpiresAt).Msg("session created")
	return &types.SessionToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// SessionUser returns the user holding token. ok is false for unknown,
// revoked or expired tokens. It never modifies a session.
func (s *Service) SessionUser(ctx context.Context, token string) (userID uint, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	now := s.now()

	if s.cache != nil {
		cached, found, err := s.cache.GetSession(ctx, token)
		if err != nil {
			log.Warn().Err(err).Msg("session cache unavailable, falling back to catalog")
		} else if found {
			if now.Before(cached.ExpiresAt) {
				return cached.UserID, true, nil
			}
			return 0, false, nil
		}
	}

	var session types.Session
	err = s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("token = ?", token).First(&session).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: failed to get session: %v", common.ErrInternal, err)
	}

	if !now.Before(session.ExpiresAt) {
		return 0, false, nil
	}
	return session.UserID, true, nil
}

// IsValid reports whether token names a live session
func (s *Service) IsValid(ctx context.Context, token string) (bool, error) {
	_, ok, err := s.SessionUser(ctx, token)
	return ok, err
}

// Revoke ends a session. Revoking an unknown token succeeds. The cache entry
// goes first; if that fails the row is kept and an error returned.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.dropCached(ctx, token); err != nil {
		return err
	}

	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("token = ?", token).Delete(&types.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: failed to revoke session: %v", common.ErrInternal, err)
	}

	log.Info().Msg("session revoked")
	return nil
}

// Login authenticates and opens a session in one step
func (s *Service) Login(ctx context.Context, email, password string) (*types.SessionToken, error) {
	userID, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			log.Warn().Str("email", utils.NormalizeEmail(email)).Msg("failed login attempt")
		}
		return nil, err
	}
	return s.CreateSession(ctx, userID)
}

func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := utils.HashPassword("craftcms-dummy-password", s.config.BCryptCost)
		if err != nil {
			log.Error().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
