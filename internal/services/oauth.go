package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

// Authorizer runs an interactive authorization flow and returns the issued token.
type Authorizer func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)

// TokenSaver persists a newly issued token.
type TokenSaver func(token *oauth2.Token) error

// OAuthSupplier mints bearer credentials for the monitor.
//
// Each call to [OAuthSupplier.Obtain] issues a new access token: first by redeeming the stored refresh token,
// then, if that is missing or rejected, through the interactive [Authorizer].
type OAuthSupplier struct {
	config    *oauth2.Config
	token     *oauth2.Token
	authorize Authorizer
	save      TokenSaver
	logger    *log.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewOAuthSupplier creates a supplier starting from token, which may be nil.
// authorize and save are optional.
func NewOAuthSupplier(config *oauth2.Config, token *oauth2.Token, authorize Authorizer, save TokenSaver, logger *log.Logger) *OAuthSupplier {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OAuthSupplier{
		config:    config,
		token:     token,
		authorize: authorize,
		save:      save,
		logger:    logger,
		now:       time.Now,
	}
}

// Obtain issues a fresh credential.
func (s *OAuthSupplier) Obtain(ctx context.Context) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.refresh(ctx)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
	}

	if token == nil {
		if s.authorize == nil {
			if err != nil {
				return models.Credential{}, err
			}
			return models.Credential{}, shared.ErrNoRefreshToken
		}

		token, err = s.authorize(ctx, s.config)
		if err != nil {
			return models.Credential{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	}

	if token.AccessToken == "" {
		return models.Credential{}, fmt.Errorf("%w: empty access token", shared.ErrInvalidCredentials)
	}

	if token.RefreshToken == "" && s.token != nil {
		token.RefreshToken = s.token.RefreshToken
	}
	s.token = token

	if s.save != nil {
		if err := s.save(token); err != nil {
			s.logger.Warn("failed to persist token", "error", err)
		}
	}

	return models.Credential{AccessToken: token.AccessToken, IssuedAt: s.now()}, nil
}

// refresh redeems the stored refresh token. It returns a nil token when there is none.
func (s *OAuthSupplier) refresh(ctx context.Context) (*oauth2.Token, error) {
	if s.token == nil || s.token.RefreshToken == "" {
		return nil, nil
	}

	// A token without an access token is never valid, so the source always goes to the token endpoint.
	stale := &oauth2.Token{RefreshToken: s.token.RefreshToken}
	token, err := s.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

// Token returns the most recently issued token.
func (s *OAuthSupplier) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
