// Package service implements the storefront backend: local accounts with JWT
// sessions and validated product management.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/storefront/internal/crypto"
	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/limiter"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// AuthServiceImpl implements repository.AuthRepository on top of local accounts.
type AuthServiceImpl struct {
	users      repository.UserRepository
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lim        limiter.Limiter
	now        func() time.Time
}

var _ repository.AuthRepository = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthServiceImpl with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL, refreshTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lim:        lim,
		now:        time.Now,
	}
}

// RegisterUser creates an account with a per-user salt. No tokens are issued.
func (s *AuthServiceImpl) RegisterUser(ctx context.Context, info model.RegisterUserInfo) (model.User, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	if info.Name == "" || info.Password == "" {
		return model.User{}, fmt.Errorf("%w: name and password are required", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(info.Email); err != nil {
		return model.User{}, fmt.Errorf("%w: email must be an email", errs.ErrValidation)
	}
	role := info.Role
	switch role {
	case "":
		role = model.RoleCustomer
	case model.RoleCustomer, model.RoleAdmin:
	default:
		return model.User{}, fmt.Errorf("%w: unknown role %q", errs.ErrValidation, role)
	}

	hash, salt, err := pkgcrypto.NewPasswordHash(info.Password)
	if err != nil {
		return model.User{}, err
	}
	a := &model.Account{
		User:     model.User{Name: info.Name, Email: info.Email, Avatar: info.Avatar, Role: role},
		PwdHash:  hash,
		SaltAuth: salt,
	}
	if err := s.users.Create(ctx, a); err != nil {
		return model.User{}, err
	}
	return a.User, nil
}

// LoginUser authenticates without a client address.
func (s *AuthServiceImpl) LoginUser(ctx context.Context, creds model.Credentials) (model.UserToken, error) {
	return s.LoginWithIP(ctx, creds, "")
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, creds model.Credentials, ip string) (model.UserToken, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.UserToken{}, err
	}
	if !allowed {
		return model.UserToken{}, errs.ErrRateLimited
	}

	a, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(creds.Password), a.SaltAuth, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.UserToken{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.UserToken{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)
	return s.issuePair(a.ID)
}

// GetUserWithSession resolves the profile owning the access token.
func (s *AuthServiceImpl) GetUserWithSession(ctx context.Context, tokens model.UserToken) (model.User, error) {
	id, err := s.subject(tokens.AccessToken, kindAccess)
	if err != nil {
		return model.User{}, err
	}
	a, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, errs.ErrUnauthorized
	}
	return a.User, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.UserToken, error) {
	id, err := s.subject(refreshToken, kindRefresh)
	if err != nil {
		return model.UserToken{}, err
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return model.UserToken{}, errs.ErrUnauthorized
	}
	return s.issuePair(id)
}

func (s *AuthServiceImpl) issuePair(userID int) (model.UserToken, error) {
	access, err := s.sign(userID, kindAccess, s.accessTTL)
	if err != nil {
		return model.UserToken{}, err
	}
	refresh, err := s.sign(userID, kindRefresh, s.refreshTTL)
	if err != nil {
		return model.UserToken{}, err
	}
	return model.UserToken{AccessToken: access, RefreshToken: refresh}, nil
}

// sign creates an HS256 JWT for userID.
func (s *AuthServiceImpl) sign(userID int, kind string, ttl time.Duration) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
}

func (s *AuthServiceImpl) subject(raw, kind string) (int, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || c.Kind != kind {
		return 0, errs.ErrUnauthorized
	}
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, errs.ErrUnauthorized
	}
	return id, nil
}
