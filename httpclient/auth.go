package httpclient

import "net/http"

// AuthConfig sets a credential header on every outgoing request.
type AuthConfig struct {
	// Header defaults to Authorization.
	Header string
	// Scheme is prefixed to the credential, e.g. "Bearer".
	Scheme string
	// Credential is the secret itself. An empty credential sends no header.
	Credential string
}

// BearerAuth authenticates with "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Scheme: "Bearer", Credential: token}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Credential == "" {
		return
	}
	header := a.Header
	if header == "" {
		header = "Authorization"
	}
	value := a.Credential
	if a.Scheme != "" {
		value = a.Scheme + " " + value
	}
	req.Header.Set(header, value)
}
