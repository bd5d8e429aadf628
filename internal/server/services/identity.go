// Package services contains the server-side business logic. IdentityService
// is the built-in identity provider: it registers accounts, signs users in,
// redeems confirmation codes and resolves the session cookie pair of every
// request, rotating it when the access token has lapsed.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
)

const MinPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Credentials is the cookie pair presented by a request. Either may be empty.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Resolution is the outcome of resolving Credentials. UserID is empty for
// anonymous callers. Cookies must be written to the response whatever the
// gate decides: they carry a rotated pair or clear a dead one.
type Resolution struct {
	UserID  string
	Cookies []*http.Cookie
}

func (r Resolution) Authenticated() bool {
	return r.UserID != ""
}

// SignUpResult carries the session of an auto-confirmed account. Pair is nil
// when the account still awaits e-mail confirmation.
type SignUpResult struct {
	User *models.User
	Pair *TokenPair
}

type IdentityService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	mailer                       Mailer
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	authCodeValidityDuration     time.Duration
	autoConfirm                  bool
	secureCookies                bool
	siteURL                      string
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, mailer Mailer, log logging.Logger, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                           db,
		repomanager:                  m,
		mailer:                       mailer,
		log:                          log.With("module", "identity"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		authCodeValidityDuration:     cfg.AuthCodeValidityDuration,
		autoConfirm:                  cfg.AutoConfirm,
		secureCookies:                cfg.SecureCookies,
		siteURL:                      strings.TrimRight(cfg.SiteURL, "/"),
	}
}

// SignUp registers a new account. Without auto-confirmation a one-time code is
// issued and the confirmation link is handed to the mailer.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}

	salt := auth.NewSalt()
	user := &models.User{Email: email, Salt: salt, PasswordHash: auth.HashPassword(password, salt)}
	if s.autoConfirm {
		now := time.Now()
		user.ConfirmedAt = &now
	}

	result := &SignUpResult{}
	var code string

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		result.User = u

		if s.autoConfirm {
			result.Pair, err = s.generateTokenPair(ctx, u.ID, tx)
			return err
		}

		code, err = s.issueAuthCode(ctx, u.ID, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.log.Error(ctx, "sign up failed", "error", err)
		return nil, common.ErrorInternal
	}

	if code != "" {
		if err := s.mailer.SendConfirmation(ctx, email, s.confirmationLink(code)); err != nil {
			s.log.Error(ctx, "sending confirmation failed", "error", err)
			return nil, common.ErrorInternal
		}
	}

	s.log.Info(ctx, "user signed up", "user_id", result.User.ID, "confirmed", result.User.Confirmed())
	return result, nil
}

// SignIn checks the password and mints a new session pair.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the timing of unknown accounts close to wrong passwords
			auth.HashPassword(password, auth.NewSalt())
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.Salt, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}
	if !user.Confirmed() {
		return nil, common.ErrorEmailNotConfirmed
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// ExchangeCode redeems a one-time confirmation code for a session pair.
// Unknown codes yield common.ErrInvalidToken. The code is consumed in the
// same transaction that confirms the user, so a failed exchange leaves it
// redeemable.
func (s *IdentityService) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	if code == "" {
		return nil, common.ErrInvalidToken
	}

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ac, err := s.repomanager.AuthCodes(tx).Consume(ctx, code)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error consuming auth code: %w", err)
		}
		if ac.Expires.Before(time.Now()) {
			return common.ErrAuthCodeExpired
		}
		if err := s.repomanager.Users(tx).Confirm(ctx, ac.UserID); err != nil {
			return fmt.Errorf("error confirming user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, ac.UserID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally and
// returns the owner together with a fresh TokenPair.
func (s *IdentityService) RefreshToken(ctx context.Context, refreshToken string) (string, *TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		return "", nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return "", nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	})
	if err != nil {
		return "", nil, err
	}

	return token.UserID, pair, nil
}

// Resolve maps the presented cookie pair to a user id. A valid access token
// wins outright; otherwise the refresh token is rotated. A pair that can no
// longer be used resolves to anonymous with clearing cookies. Errors are only
// returned for store failures.
func (s *IdentityService) Resolve(ctx context.Context, creds Credentials) (Resolution, error) {
	if creds.AccessToken != "" {
		userID, err := auth.GetUserIDFromToken(creds.AccessToken, s.jwtSecret)
		if err == nil {
			return Resolution{UserID: userID}, nil
		}
	}

	if creds.RefreshToken == "" {
		if creds.AccessToken != "" {
			return Resolution{Cookies: s.ClearSessionCookies()}, nil
		}
		return Resolution{}, nil
	}

	userID, pair, err := s.RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrRefreshTokenExpired) {
			return Resolution{Cookies: s.ClearSessionCookies()}, nil
		}
		return Resolution{}, err
	}

	return Resolution{UserID: userID, Cookies: s.SessionCookies(pair)}, nil
}

// SignOut revokes the refresh token. An unknown token is not an error.
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry.
func (s *IdentityService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx)
}

// SessionCookies returns the Set-Cookie values carrying pair.
func (s *IdentityService) SessionCookies(pair *TokenPair) []*http.Cookie {
	return []*http.Cookie{
		s.cookie(common.AccessTokenCookieName, pair.AccessToken, s.accessTokenValidityDuration),
		s.cookie(common.RefreshTokenCookieName, pair.RefreshToken, s.refreshTokenValidityDuration),
	}
}

// ClearSessionCookies returns Set-Cookie values that delete both session cookies.
func (s *IdentityService) ClearSessionCookies() []*http.Cookie {
	access := s.cookie(common.AccessTokenCookieName, "", 0)
	access.MaxAge = -1
	refresh := s.cookie(common.RefreshTokenCookieName, "", 0)
	refresh.MaxAge = -1
	return []*http.Cookie{access, refresh}
}

func (s *IdentityService) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *IdentityService) confirmationLink(code string) string {
	return s.siteURL + common.AuthCallbackPath + "?code=" + url.QueryEscape(code)
}

func (s *IdentityService) issueAuthCode(ctx context.Context, userID string, tx dbx.DBTX) (string, error) {
	code, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	ac := &models.AuthCode{Code: code, UserID: userID, Expires: time.Now().Add(s.authCodeValidityDuration)}
	if err := s.repomanager.AuthCodes(tx).Create(ctx, ac); err != nil {
		return "", err
	}
	return code, nil
}

func (s *IdentityService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	rt := &models.RefreshToken{UserID: userID, Token: refresh, Expires: time.Now().Add(s.refreshTokenValidityDuration)}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, rt); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return email, nil
}
