package service

import (
	"os"
	"sync"
)

// TokenProvider supplies the opaque bearer token attached to route backend
// fetches. The core never touches token storage directly; a 401 clears the
// token through this capability.
type TokenProvider interface {
	Get() string
	Clear()
}

// EnvTokenProvider reads the token from an environment variable once and
// holds it in memory afterwards
type EnvTokenProvider struct {
	mu    sync.Mutex
	token string
}

// NewEnvTokenProvider creates a provider seeded from the named env var
func NewEnvTokenProvider(envKey string) *EnvTokenProvider {
	return &EnvTokenProvider{token: os.Getenv(envKey)}
}

// Get returns the current token, empty when cleared or never set
func (p *EnvTokenProvider) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Clear drops the token after an unauthorized response
func (p *EnvTokenProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
}

// StaticTokenProvider holds a fixed token, mainly for tests
type StaticTokenProvider struct {
	mu    sync.Mutex
	token string
}

// NewStaticTokenProvider creates a provider with the given token
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// Get returns the current token
func (p *StaticTokenProvider) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Clear drops the token
func (p *StaticTokenProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
}
