package httpapi

import (
	"net/http"
	"net/url"

	"github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// validSignature checks the provider's request signature over fullURL and
// the POST parameters.  The validator also accepts the URL with the default
// port added or removed, since the provider signs either form.
func validSignature(authToken, fullURL string, form url.Values, got string) bool {
	if got == "" {
		return false
	}
	params := make(map[string]string, len(form))
	for k := range form {
		params[k] = form.Get(k)
	}
	v := client.NewRequestValidator(authToken)
	return v.Validate(fullURL, params, got)
}

// requestURL rebuilds the URL the provider signed.  X-Forwarded-Proto is
// only honored behind a trusted proxy.
func (s *Server) requestURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if s.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-Proto"); fwd == "http" || fwd == "https" {
			scheme = fwd
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
