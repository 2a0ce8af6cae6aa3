package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// WithRequestMetadata adds the client IP to ctx for import logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by TrustedRealIP
	return core.ContextWithClientIP(ctx, ip)
}
