// Package httpapi exposes the storefront over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/optiplus/storefront/internal/auth"
	"github.com/optiplus/storefront/internal/config"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/shop"
	"go.uber.org/zap"
)

const authCookieName = "auth_token"

type Server struct {
	shop     *shop.Service
	sessions session.Store
	tokens   *auth.TokenIssuer
	cookies  config.SessionConfig
	logger   *zap.Logger
}

func NewServer(svc *shop.Service, sessions session.Store, tokens *auth.TokenIssuer, cookies config.SessionConfig, logger *zap.Logger) *Server {
	return &Server{
		shop:     svc,
		sessions: sessions,
		tokens:   tokens,
		cookies:  cookies,
		logger:   logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.withSession)
	r.Use(s.withIdentity)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleHome)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleProductList)
		r.Get("/search", s.handleProductSearch)
		r.Get("/offers", s.handleOffers)
		r.Get("/brands", s.handleBrands)
		r.Get("/category/{slug}", s.handleCategoryProducts)
		r.Get("/brand/{slug}", s.handleBrandProducts)
		r.Get("/product/{slug}", s.handleProductDetail)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handleCartDetail)
		r.Post("/add/{productID}", s.handleAddToCart)
		r.Post("/update/{itemID}", s.handleUpdateCart)
		r.Post("/remove/{itemID}", s.handleRemoveFromCart)
		r.Post("/clear", s.handleClearCart)
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/profile", s.handleProfile)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleOrderList)
		r.Get("/checkout", s.handleCheckoutForm)
		r.Post("/checkout", s.handleCheckout)
		r.Get("/{orderID}", s.handleOrderDetail)
		r.Get("/{orderID}/confirmation", s.handleOrderConfirmation)
		r.Get("/{orderID}/payment", s.handlePaymentForm)
		r.Post("/{orderID}/payment", s.handlePayment)
		r.Post("/{orderID}/resend-email", s.handleResendEmail)
	})

	r.Post("/newsletter/signup", s.handleNewsletterSignup)

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
