package llm

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/stepflow/httpclient"
)

// Dialect maps the provider-independent types to and from one provider's
// HTTP API.
type Dialect interface {
	// Name is the identifier used in Config.Provider.
	Name() string
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL() string
	// DefaultModel is used when neither the request nor Config names a model.
	DefaultModel() string
	// ChatPath is the completion endpoint, relative to the base URL.
	ChatPath() string
	// Auth returns the credential to attach to every request.
	Auth(apiKey string) *httpclient.Auth
	// Headers are extra fixed headers the provider requires.
	Headers() map[string]string
	// BuildRequest maps a request to the provider's JSON body.
	BuildRequest(req CompletionRequest) (any, error)
	// ParseResponse maps the provider's JSON body to a response.
	ParseResponse(body []byte) (*CompletionResponse, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect adds a dialect to the global registry. Dialect packages
// call it from init.
func RegisterDialect(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = d
}

// GetDialect looks up a registered dialect.
func GetDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (forgot to import its package?)", name)
	}
	return d, nil
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
