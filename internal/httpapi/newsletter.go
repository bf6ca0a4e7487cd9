package httpapi

import (
	"net/http"
	"net/url"

	"github.com/optiplus/storefront/internal/session"
)

func (s *Server) handleNewsletterSignup(w http.ResponseWriter, r *http.Request) {
	back := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		back = safeRedirect(ref.RequestURI(), "/")
	}

	values, err := formValues(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "Malformed request body.", nil)
		return
	}

	created, err := s.shop.Subscribe(r.Context(), values.Get("email"))
	if err != nil {
		s.fail(w, r, err, back)
		return
	}

	if created {
		s.done(w, r, outcome{
			status:   http.StatusCreated,
			message:  "Successfully subscribed to our newsletter!",
			redirect: back,
			extra:    payload{"created": true},
		})
		return
	}

	s.done(w, r, outcome{
		level:    session.FlashInfo,
		message:  "You are already subscribed to our newsletter.",
		redirect: back,
		extra:    payload{"created": false},
	})
}
