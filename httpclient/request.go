package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is an absolute http(s) URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is sent as-is for []byte and string; other values are JSON-encoded.
	Body any
	// Auth overrides the client-level Auth.
	Auth *Auth
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
