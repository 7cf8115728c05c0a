// Package server exposes the catalog and account backend over HTTP/JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// TotalCountHeader carries the unpaginated match count of a listing.
const TotalCountHeader = "X-Total-Count"

// Auth is the account backend the handlers need.
type Auth interface {
	repository.AuthRepository
	LoginWithIP(ctx context.Context, creds model.Credentials, ip string) (model.UserToken, error)
	Refresh(ctx context.Context, refreshToken string) (model.UserToken, error)
}

// Server wires services into HTTP handlers.
type Server struct {
	products repository.ProductRepository
	auth     Auth
	log      *zap.Logger
}

// New constructs a Server with injected services.
func New(products repository.ProductRepository, auth Auth, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{products: products, auth: auth, log: log}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Recover(s.log), Logging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Post("/products", s.createProduct)
		r.Get("/products/{id}", s.getProduct)
		r.Put("/products/{id}", s.updateProduct)
		r.Delete("/products/{id}", s.deleteProduct)
		r.Get("/categories", s.listCategories)

		r.Post("/users", s.registerUser)
		r.Post("/auth/login", s.login)
		r.Post("/auth/refresh-token", s.refresh)
		r.Group(func(r chi.Router) {
			r.Use(s.Authenticated)
			r.Get("/auth/profile", s.profile)
		})
	})
	return r
}

// --- Products ---

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.products.GetProducts(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(TotalCountHeader, strconv.Itoa(page.Total))
	products := page.Products
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	p, err := s.products.GetProduct(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var d model.ProductDraft
	if !s.decode(w, r, &d) {
		return
	}
	p, err := s.products.RegisterProduct(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	var patch model.ProductPatch
	if !s.decode(w, r, &patch) {
		return
	}
	p, err := s.products.UpdateProduct(r.Context(), patch, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	if err := s.products.DeleteProduct(r.Context(), model.Product{ID: id}); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.products.GetCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// --- Accounts ---

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var info model.RegisterUserInfo
	if !s.decode(w, r, &info) {
		return
	}
	u, err := s.auth.RegisterUser(r.Context(), info)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if !s.decode(w, r, &creds) {
		return
	}
	tok, err := s.auth.LoginWithIP(r.Context(), creds, remoteIP(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tok)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tok)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		s.writeError(w, r, errs.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- helpers ---

func (s *Server) productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: bad product id", errs.ErrValidation))
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: bad request body: %v", errs.ErrValidation, err))
		return false
	}
	return true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorBody struct {
	Message string `json:"message"`
}

// statusOf maps domain sentinels to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidFilter), errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	writeMessage(w, code, msg)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
