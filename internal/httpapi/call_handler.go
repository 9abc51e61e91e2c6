package httpapi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portico/internal/portico/service"
	"github.com/BrandonDHaskell/Portico/internal/twiml"
)

// handleCall is the telephony webhook.  The provider posts the caller's
// number as the form field "From" and executes the TwiML we return.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error: malformed request.", http.StatusBadRequest)
		return
	}

	if s.twilioAuthToken != "" {
		if !validSignature(s.twilioAuthToken, s.requestURL(r), r.PostForm, r.Header.Get(signatureHeader)) {
			log.Warn().Msg("webhook signature rejected")
			http.Error(w, "Error: invalid signature.", http.StatusForbidden)
			return
		}
	}

	d, err := s.access.Decide(r.Context(), r.PostForm.Get("From"))
	switch {
	case errors.Is(err, service.ErrInvalidCaller):
		http.Error(w, "Error: Incoming number not provided.", http.StatusBadRequest)
		return
	case err != nil:
		log.Error().Err(err).Msg("access decision failed")
		http.Error(w, "Error: service unavailable.", http.StatusServiceUnavailable)
		return
	}

	body, err := twiml.Render(d)
	if err != nil {
		log.Error().Err(err).Msg("render twiml")
		http.Error(w, "Error: internal error.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", twiml.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
