package httpclient

import "net/http"

// Request is one outbound call.
type Request struct {
	Method string
	// Path is joined to Config.BaseURL unless it is an absolute URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body may be a *MultipartBody, []byte, string or any JSON-encodable
	// value. It is re-encoded on every attempt.
	Body any
	// Auth replaces Config.Auth for this call.
	Auth *AuthConfig
	// NoRetry makes a single attempt even when Config.Retry is set.
	NoRetry bool
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }
