package jam

import "context"

// requestMeta is the caller information copied into audit events.
type requestMeta struct {
	ip        string
	userAgent string
}

type requestMetaKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Audit events emitted
// for operations run under ctx carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	m := metaFromContext(ctx)
	m.ip = ip
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	m := metaFromContext(ctx)
	m.userAgent = userAgent
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func metaFromContext(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func clientIPFromContext(ctx context.Context) string { return metaFromContext(ctx).ip }

func userAgentFromContext(ctx context.Context) string { return metaFromContext(ctx).userAgent }
