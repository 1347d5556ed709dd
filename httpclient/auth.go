package httpclient

import "net/http"

// Auth sets credentials on an outgoing request.
type Auth struct {
	header string
	value  string
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) *Auth {
	return &Auth{header: "Authorization", value: "Bearer " + token}
}

// HeaderAuth sends the key in a named header, e.g. x-api-key.
func HeaderAuth(name, key string) *Auth {
	return &Auth{header: name, value: key}
}

func (a *Auth) apply(req *http.Request) {
	if a == nil || a.header == "" {
		return
	}
	req.Header.Set(a.header, a.value)
}
