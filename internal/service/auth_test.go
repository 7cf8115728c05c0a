package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/storefront/internal/crypto"
	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/limiter"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.Account
	nextID  int

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, a *model.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.Account{}
	}
	if _, exists := f.byEmail[a.Email]; exists {
		return errs.ErrAlreadyExists
	}
	f.nextID++
	a.ID = f.nextID
	cpy := *a
	f.byEmail[a.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*model.Account, error) {
	for _, a := range f.byEmail {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func seeded(t *testing.T, email, password string) *fakeUsers {
	t.Helper()
	salt, err := pkgcrypto.RandBytes(pkgcrypto.SaltLen)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	users := &fakeUsers{}
	_ = users.Create(context.Background(), &model.Account{
		User:     model.User{Name: "John", Email: email, Role: model.RoleCustomer},
		SaltAuth: salt,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
	})
	return users
}

func TestAuth_RegisterUser(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users, []byte("k"), time.Minute, time.Hour, &fakeLimiter{})
	ctx := context.Background()

	for _, bad := range []model.RegisterUserInfo{
		{},
		{Name: "Ann", Email: "not-an-email", Password: "pw"},
		{Name: "Ann", Email: "ann@mail.com", Password: "pw", Role: "root"},
	} {
		if _, err := s.RegisterUser(ctx, bad); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("want ErrValidation for %+v, got %v", bad, err)
		}
	}

	u, err := s.RegisterUser(ctx, model.RegisterUserInfo{Name: "Ann", Email: " Ann@Mail.com ", Password: "pw"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.ID == 0 || u.Email != "ann@mail.com" || u.Role != model.RoleCustomer {
		t.Fatalf("bad user: %+v", u)
	}
	stored := users.byEmail["ann@mail.com"]
	if !pkgcrypto.VerifyPassword([]byte("pw"), stored.SaltAuth, stored.PwdHash) {
		t.Fatalf("stored hash does not verify")
	}

	if _, err := s.RegisterUser(ctx, model.RegisterUserInfo{Name: "Ann", Email: "ann@mail.com", Password: "pw2"}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}

	users.createErr = errors.New("boom")
	if _, err := s.RegisterUser(ctx, model.RegisterUserInfo{Name: "Bob", Email: "bob@mail.com", Password: "pw"}); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	users := seeded(t, "john@mail.com", "changeme")
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, time.Hour, lim)
	ctx := context.Background()
	good := model.Credentials{Email: "john@mail.com", Password: "changeme"}
	wrong := model.Credentials{Email: "john@mail.com", Password: "wrong"}

	lim.allowErr = errors.New("lim-err")
	if _, err := s.LoginWithIP(ctx, good, "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, err := s.LoginWithIP(ctx, good, "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	if _, err := s.LoginWithIP(ctx, model.Credentials{Email: "nope@mail.com", Password: "x"}, ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}

	lim.failBlocked = true
	if _, err := s.LoginWithIP(ctx, wrong, ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}
	lim.failBlocked = false

	if _, err := s.LoginWithIP(ctx, wrong, ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, err := s.LoginWithIP(ctx, good, "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.AccessToken == tok.RefreshToken {
		t.Fatalf("bad token pair: %+v", tok)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}
}

func TestAuth_GetUserWithSession(t *testing.T) {
	t.Parallel()

	users := seeded(t, "john@mail.com", "changeme")
	s := NewAuthService(users, []byte("secret"), time.Minute, time.Hour, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	tok, err := s.LoginUser(ctx, model.Credentials{Email: "john@mail.com", Password: "changeme"})
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	u, err := s.GetUserWithSession(ctx, tok)
	if err != nil {
		t.Fatalf("GetUserWithSession: %v", err)
	}
	if u.Email != "john@mail.com" {
		t.Fatalf("wrong user: %+v", u)
	}

	if _, err := s.GetUserWithSession(ctx, model.UserToken{AccessToken: tok.RefreshToken}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("refresh token must not open a session, got %v", err)
	}
	if _, err := s.GetUserWithSession(ctx, model.UserToken{AccessToken: "garbage"}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}

	other := NewAuthService(users, []byte("other-key"), time.Minute, time.Hour, &fakeLimiter{allowOK: true})
	if _, err := other.GetUserWithSession(ctx, tok); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("foreign signature must be rejected, got %v", err)
	}
}

func TestAuth_AccessTokenExpires(t *testing.T) {
	t.Parallel()

	users := seeded(t, "john@mail.com", "changeme")
	s := NewAuthService(users, []byte("secret"), time.Minute, time.Hour, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	tok, err := s.LoginUser(ctx, model.Credentials{Email: "john@mail.com", Password: "changeme"})
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, &c); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.ID == "" || c.Subject != "1" || c.Kind != kindAccess {
		t.Fatalf("bad claims: %+v", c)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := s.GetUserWithSession(ctx, tok); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expired access token must be rejected, got %v", err)
	}

	fresh, err := s.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := s.GetUserWithSession(ctx, fresh); err != nil {
		t.Fatalf("refreshed pair must open a session: %v", err)
	}
	if _, err := s.Refresh(ctx, tok.AccessToken); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}
