package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/tokenstore"
)

type fakeAuth struct {
	register func(model.RegisterUserInfo) (model.User, error)
	login    func(context.Context, model.Credentials) (model.UserToken, error)
	profile  func(model.UserToken) (model.User, error)
}

func (f *fakeAuth) RegisterUser(_ context.Context, info model.RegisterUserInfo) (model.User, error) {
	return f.register(info)
}

func (f *fakeAuth) LoginUser(ctx context.Context, c model.Credentials) (model.UserToken, error) {
	return f.login(ctx, c)
}

func (f *fakeAuth) GetUserWithSession(_ context.Context, t model.UserToken) (model.User, error) {
	return f.profile(t)
}

type failingStore struct {
	*tokenstore.Memory
	setErr, clearErr error
}

func (f *failingStore) Set(t model.UserToken) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Memory.Set(t)
}

func (f *failingStore) Clear() error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.Memory.Clear()
}

var (
	john   = model.User{ID: 1, Name: "John", Email: "john@mail.com", Role: model.RoleCustomer}
	tokens = model.UserToken{AccessToken: "acc-1", RefreshToken: "ref-1"}
)

func okAuth() *fakeAuth {
	return &fakeAuth{
		register: func(info model.RegisterUserInfo) (model.User, error) {
			return model.User{ID: 7, Name: info.Name, Email: info.Email}, nil
		},
		login: func(context.Context, model.Credentials) (model.UserToken, error) { return tokens, nil },
		profile: func(t model.UserToken) (model.User, error) {
			if t.AccessToken != tokens.AccessToken {
				return model.User{}, errs.ErrUnauthorized
			}
			return john, nil
		},
	}
}

func TestLogin_StoresTokensWithoutUser(t *testing.T) {
	t.Parallel()

	store := tokenstore.NewMemory()
	s := New(okAuth(), store, zaptest.NewLogger(t))

	st := s.Login(context.Background(), model.Credentials{Email: "john@mail.com", Password: "changeme"})
	require.Equal(t, lifecycle.Fulfilled, st.Op(KindLogin).Status)
	require.Nil(t, st.User)

	got, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, tokens, *got)

	st = s.RestoreSession(context.Background(), *got)
	require.Equal(t, &john, st.User)
	require.True(t, st.SignedIn())
	require.False(t, st.Loading())
}

func TestRegister_NeverSetsUser(t *testing.T) {
	t.Parallel()

	s := New(okAuth(), tokenstore.NewMemory(), nil)
	st := s.Register(context.Background(), model.RegisterUserInfo{Name: "Ann", Email: "ann@mail.com", Password: "pw"})
	require.Equal(t, lifecycle.Fulfilled, st.Op(KindRegister).Status)
	require.Nil(t, st.User)
	require.Empty(t, st.Error)
}

func TestRejection_NullsUser(t *testing.T) {
	t.Parallel()

	auth := okAuth()
	s := New(auth, tokenstore.NewMemory(), nil)
	require.NotNil(t, s.RestoreSession(context.Background(), tokens).User)

	auth.login = func(context.Context, model.Credentials) (model.UserToken, error) {
		return model.UserToken{}, errors.New("Unauthorized")
	}
	st := s.Login(context.Background(), model.Credentials{Email: "john@mail.com", Password: "bad"})
	require.Equal(t, lifecycle.Rejected, st.Op(KindLogin).Status)
	require.Equal(t, "Unauthorized", st.Error)
	require.Nil(t, st.User)

	st = s.RestoreSession(context.Background(), model.UserToken{AccessToken: "stale"})
	require.Equal(t, lifecycle.Rejected, st.Op(KindRestore).Status)
	require.Equal(t, errs.ErrUnauthorized.Error(), st.Error)
}

func TestLogin_TokenStoreFailureRejects(t *testing.T) {
	t.Parallel()

	store := &failingStore{Memory: tokenstore.NewMemory(), setErr: errors.New("disk full")}
	s := New(okAuth(), store, nil)

	st := s.Login(context.Background(), model.Credentials{})
	require.Equal(t, lifecycle.Rejected, st.Op(KindLogin).Status)
	require.Equal(t, "disk full", st.Error)
}

func TestRestore_RePersistsTokens(t *testing.T) {
	t.Parallel()

	store := tokenstore.NewMemory()
	s := New(okAuth(), store, nil)
	s.RestoreSession(context.Background(), tokens)

	got, _ := store.Get()
	require.Equal(t, tokens, *got)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	store := &failingStore{Memory: tokenstore.NewMemory()}
	s := New(okAuth(), store, nil)
	s.Login(context.Background(), model.Credentials{})
	s.RestoreSession(context.Background(), tokens)

	st := s.Logout()
	require.Nil(t, st.User)
	got, _ := store.Get()
	require.Nil(t, got)

	// a failing clear still signs the user out
	s.RestoreSession(context.Background(), tokens)
	store.clearErr = errors.New("read-only fs")
	st = s.Logout()
	require.Nil(t, st.User)
}

func TestLogout_DiscardsInFlightLogin(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	auth := okAuth()
	auth.login = func(context.Context, model.Credentials) (model.UserToken, error) {
		close(started)
		<-release
		return tokens, nil
	}
	store := tokenstore.NewMemory()
	s := New(auth, store, nil)

	done := make(chan State)
	go func() { done <- s.Login(context.Background(), model.Credentials{}) }()
	<-started
	s.Logout()
	close(release)
	st := <-done

	require.Equal(t, lifecycle.Idle, st.Op(KindLogin).Status)
	got, _ := store.Get()
	require.Nil(t, got, "a login resolved after logout must not store tokens")
}

func TestResume(t *testing.T) {
	t.Parallel()

	store := tokenstore.NewMemory()
	s := New(okAuth(), store, nil)

	st := s.Resume(context.Background())
	require.Equal(t, lifecycle.Idle, st.Op(KindRestore).Status)
	require.Nil(t, st.User)

	require.NoError(t, store.Set(tokens))
	st = s.Resume(context.Background())
	require.Equal(t, &john, st.User)
}

func TestSubscribe_SeesPendingThenResult(t *testing.T) {
	t.Parallel()

	s := New(okAuth(), tokenstore.NewMemory(), nil)
	var seen []lifecycle.Status
	cancel := s.Subscribe(func(st State) { seen = append(seen, st.Op(KindRestore).Status) })
	defer cancel()

	s.RestoreSession(context.Background(), tokens)
	require.Equal(t, []lifecycle.Status{lifecycle.Pending, lifecycle.Fulfilled}, seen)
}

func signedPair(t *testing.T, exp time.Time) model.UserToken {
	t.Helper()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return model.UserToken{AccessToken: access, RefreshToken: "ref"}
}

func TestResume_ExpiredTokensCleared(t *testing.T) {
	t.Parallel()

	restored := 0
	auth := okAuth()
	auth.profile = func(model.UserToken) (model.User, error) {
		restored++
		return john, nil
	}
	store := tokenstore.NewMemory()
	s := New(auth, store, zaptest.NewLogger(t))

	require.NoError(t, store.Set(signedPair(t, time.Now().Add(-time.Minute))))
	st := s.Resume(context.Background())
	require.Nil(t, st.User)
	require.Zero(t, restored)
	got, _ := store.Get()
	require.Nil(t, got, "expired pair is dropped")

	live := signedPair(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Set(live))
	st = s.Resume(context.Background())
	require.Equal(t, &john, st.User)
	require.Equal(t, 1, restored)
}

func TestReduce_OutOfOrderPending(t *testing.T) {
	t.Parallel()

	st := Reduce(Initial(), Pending{Token: 2, Kind: KindRestore})
	st = Reduce(st, Pending{Token: 1, Kind: KindRestore})
	st = Reduce(st, Fulfilled{Token: 2, Kind: KindRestore, User: &john})
	st = Reduce(st, Rejected{Token: 1, Kind: KindRestore, Err: errs.ErrUnauthorized})

	require.Equal(t, &john, st.User)
	require.Equal(t, lifecycle.Fulfilled, st.Op(KindRestore).Status)
	require.Empty(t, st.Error)

	// logout keeps older intents superseded
	st = Reduce(st, LoggedOut{})
	st = Reduce(st, Pending{Token: 1, Kind: KindRestore})
	require.False(t, st.Loading())
}
