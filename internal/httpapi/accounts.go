package httpapi

import (
	"net/http"
	"time"

	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/shop"
)

const loginPath = "/accounts/login"

func (s *Server) setAuthCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// signIn issues the identity token for user and returns the fields added to
// a JSON outcome.
func (s *Server) signIn(w http.ResponseWriter, user *models.User) (payload, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	s.setAuthCookie(w, token, expires)

	return payload{
		"token":      token,
		"expires_at": expires.UTC(),
		"user":       toUser(user),
	}, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}

	form := shop.RegisterForm{
		Email:       values.Get("email"),
		PhoneNumber: values.Get("phone_number"),
		FirstName:   values.Get("first_name"),
		LastName:    values.Get("last_name"),
		Password1:   values.Get("password1"),
		Password2:   values.Get("password2"),
	}

	user, err := s.shop.Register(r.Context(), sessionFrom(r.Context()), form)
	if err != nil {
		s.fail(w, r, err, "/accounts/register")
		return
	}

	extra, err := s.signIn(w, user)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}

	s.done(w, r, outcome{
		status:   http.StatusCreated,
		message:  "Your account has been created successfully!",
		redirect: "/accounts/profile",
		extra:    extra,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}

	next := values.Get("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}

	form := shop.LoginForm{
		Email:    values.Get("email"),
		Password: values.Get("password"),
	}
	if form.Email == "" {
		form.Email = values.Get("username")
	}

	user, err := s.shop.Login(r.Context(), sessionFrom(r.Context()), form)
	if err != nil {
		s.fail(w, r, err, loginPath)
		return
	}

	extra, err := s.signIn(w, user)
	if err != nil {
		s.fail(w, r, err, loginPath)
		return
	}

	s.done(w, r, outcome{
		message:  "Welcome back, " + user.Email + "!",
		redirect: safeRedirect(next, "/"),
		extra:    extra,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.shop.Logout(sessionFrom(r.Context()))
	s.clearAuthCookie(w)

	s.done(w, r, outcome{message: "You have been logged out.", redirect: "/"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.shop.Profile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.page(w, r, payload{"user": toUser(user)})
}
