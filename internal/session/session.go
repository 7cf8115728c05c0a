package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
	"github.com/and161185/storefront/internal/store"
	"github.com/and161185/storefront/internal/tokenstore"
)

// Session runs session intents against an AuthRepository and a TokenStore.
type Session struct {
	auth   repository.AuthRepository
	tokens repository.TokenStore
	st     *store.Store[State, Event]
	seq    lifecycle.Tokens
	log    *zap.Logger
	now    func() time.Time

	// serializes token store writes with Logout
	mu sync.Mutex
}

// New constructs a signed-out Session.
func New(auth repository.AuthRepository, tokens repository.TokenStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{auth: auth, tokens: tokens, st: store.New(Initial(), Reduce, log), log: log, now: time.Now}
}

// State returns the current session state.
func (s *Session) State() State { return s.st.State() }

// Subscribe registers fn for every state change.
func (s *Session) Subscribe(fn func(State)) (cancel func()) { return s.st.Subscribe(fn) }

// Register creates an account. The user stays signed out.
func (s *Session) Register(ctx context.Context, info model.RegisterUserInfo) State {
	tok := s.begin(KindRegister)
	if _, err := s.auth.RegisterUser(ctx, info); err != nil {
		return s.reject(tok, KindRegister, err)
	}
	return s.st.Dispatch(Fulfilled{Token: tok, Kind: KindRegister})
}

// Login exchanges credentials for tokens and stores them. The profile is not
// loaded; call RestoreSession for that.
func (s *Session) Login(ctx context.Context, creds model.Credentials) State {
	tok := s.begin(KindLogin)
	pair, err := s.auth.LoginUser(ctx, creds)
	if err != nil {
		return s.reject(tok, KindLogin, err)
	}
	return s.persist(tok, KindLogin, pair, nil)
}

// RestoreSession loads the profile owning tokens and stores tokens again.
func (s *Session) RestoreSession(ctx context.Context, tokens model.UserToken) State {
	tok := s.begin(KindRestore)
	u, err := s.auth.GetUserWithSession(ctx, tokens)
	if err != nil {
		return s.reject(tok, KindRestore, err)
	}
	return s.persist(tok, KindRestore, tokens, &u)
}

// Resume restores the session from the token store, if it holds a pair.
// A JWT access token that has already expired is cleared instead of restored.
func (s *Session) Resume(ctx context.Context) State {
	pair, err := s.tokens.Get()
	if err != nil {
		s.log.Warn("read token store", zap.Error(err))
		return s.State()
	}
	if pair == nil {
		return s.State()
	}
	if exp, ok := tokenstore.Expiry(*pair); ok && !exp.After(s.now()) {
		s.log.Info("stored session expired", zap.Time("expiry", exp))
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.tokens.Clear(); err != nil {
			s.log.Warn("clear token store", zap.Error(err))
		}
		return s.st.State()
	}
	return s.RestoreSession(ctx, *pair)
}

// Logout clears the token store and the user. A failing clear is logged only.
func (s *Session) Logout() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("clear token store", zap.Error(err))
	}
	return s.st.Dispatch(LoggedOut{})
}

func (s *Session) begin(k Kind) uint64 {
	tok := s.seq.Next()
	s.st.Dispatch(Pending{Token: tok, Kind: k})
	return tok
}

func (s *Session) reject(tok uint64, k Kind, err error) State {
	s.log.Warn("session request failed", zap.Stringer("op", k), zap.Error(err))
	return s.st.Dispatch(Rejected{Token: tok, Kind: k, Err: err})
}

// persist stores pair and resolves the op, unless the op was superseded or
// logged out while the request was in flight.
func (s *Session) persist(tok uint64, k Kind, pair model.UserToken, u *model.User) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.st.State().Ops[k].Accepts(tok) {
		return s.st.State()
	}
	if err := s.tokens.Set(pair); err != nil {
		if k == KindLogin {
			return s.reject(tok, k, err)
		}
		s.log.Warn("re-persist session tokens", zap.Error(err))
	}
	return s.st.Dispatch(Fulfilled{Token: tok, Kind: k, User: u})
}
