package api

import (
	"context"

	"github.com/adfharrison1/json-updates/pkg/domain"
	"github.com/adfharrison1/json-updates/pkg/gateway"
)

const (
	defaultRedirectURL  = "https://github.com/pashutk/json-updates"
	defaultMaxBodyBytes = 16 << 20
)

// DataWriter runs a write request through the gateway pipeline
type DataWriter interface {
	Write(ctx context.Context, req domain.WriteRequest) (*gateway.WriteResult, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the gateway API
type Handler struct {
	writer       DataWriter
	pinger       Pinger
	backend      string
	redirectURL  string
	maxBodyBytes int64
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithRedirectURL sets the target of GET /
func WithRedirectURL(url string) HandlerOption {
	return func(h *Handler) {
		h.redirectURL = url
	}
}

// WithMaxBodyBytes limits the size of POST /data bodies
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

// WithBackendName sets the backend reported by the health endpoint
func WithBackendName(name string) HandlerOption {
	return func(h *Handler) {
		h.backend = name
	}
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(writer DataWriter, pinger Pinger, options ...HandlerOption) *Handler {
	h := &Handler{
		writer:       writer,
		pinger:       pinger,
		redirectURL:  defaultRedirectURL,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, option := range options {
		option(h)
	}
	return h
}
