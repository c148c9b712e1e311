package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/jam"
)

const (
	// DefaultTokenCookie is the cookie read by JWT and PASETO guards.
	DefaultTokenCookie = "jam_token"
	// DefaultSessionCookie is the cookie read by the Session guard.
	DefaultSessionCookie = "jam_session"
	// DefaultSessionHeader is the header read by the Session guard.
	DefaultSessionHeader = "X-Session-ID"
)

type payloadContextKey struct{}
type sessionContextKey struct{}
type instanceContextKey struct{}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type options struct {
	cookie    string
	header    string
	checkExp  bool
	checkList bool
	onError   ErrorHandler
}

// Option configures a guard.
type Option func(*options)

// WithCookie sets the cookie name to read. An empty name disables cookies.
func WithCookie(name string) Option {
	return func(o *options) { o.cookie = name }
}

// WithHeader sets the header to read. For token guards the header value must
// carry a "Bearer " prefix when the header is Authorization.
func WithHeader(name string) Option {
	return func(o *options) { o.header = name }
}

// WithoutExpiry accepts tokens past their exp claim.
func WithoutExpiry() Option {
	return func(o *options) { o.checkExp = false }
}

// WithListCheck consults the instance's JWT list.
func WithListCheck() Option {
	return func(o *options) { o.checkList = true }
}

// WithErrorHandler replaces the default 401 response.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.onError = h }
}

func buildOptions(cookie, header string, opts []Option) options {
	o := options{
		cookie:   cookie,
		header:   header,
		checkExp: true,
		onError:  unauthorized,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func unauthorized(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// PayloadFromContext returns the verified token payload stored by JWT or PASETO.
func PayloadFromContext(ctx context.Context) (map[string]any, bool) {
	p, ok := ctx.Value(payloadContextKey{}).(map[string]any)
	return p, ok
}

// SessionData is what the Session guard stores in the request context.
type SessionData struct {
	ID   string
	Data map[string]any
}

// SessionFromContext returns the session loaded by the Session guard.
func SessionFromContext(ctx context.Context) (*SessionData, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*SessionData)
	return s, ok
}

// InstanceFromContext returns the Instance stored by Inject.
func InstanceFromContext(ctx context.Context) (*jam.Instance, bool) {
	inst, ok := ctx.Value(instanceContextKey{}).(*jam.Instance)
	return inst, ok
}

// Inject stores inst in every request context.
func Inject(inst *jam.Instance) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), instanceContextKey{}, inst)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard verifies tokens of the instance's configured auth type.
func Guard(inst *jam.Instance, opts ...Option) func(http.Handler) http.Handler {
	if inst != nil && inst.Config().AuthType == jam.AuthPASETO {
		return PASETO(inst, opts...)
	}
	return JWT(inst, opts...)
}

// JWT verifies a JWT from the Authorization bearer header or the token cookie.
func JWT(inst *jam.Instance, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(DefaultTokenCookie, "Authorization", opts)
	return tokenGuard(inst, o, func(ctx context.Context, token string) (map[string]any, error) {
		return inst.VerifyJWT(ctx, token, o.checkExp, o.checkList)
	})
}

// PASETO verifies a PASETO token from the Authorization bearer header or the
// token cookie.
func PASETO(inst *jam.Instance, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(DefaultTokenCookie, "Authorization", opts)
	return tokenGuard(inst, o, func(ctx context.Context, token string) (map[string]any, error) {
		payload, _, err := inst.VerifyPASETO(ctx, token, o.checkExp)
		return payload, err
	})
}

func tokenGuard(inst *jam.Instance, o options, verify func(context.Context, string) (map[string]any, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if inst == nil {
				o.onError(w, r, jam.ErrModuleNotConfigured)
				return
			}

			token, ok := credential(r, o, true)
			if !ok {
				o.onError(w, r, jam.ErrFormat)
				return
			}

			ctx := requestContext(r)
			payload, err := verify(ctx, token)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, payloadContextKey{}, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Session loads the session named by the session cookie or X-Session-ID header.
func Session(inst *jam.Instance, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(DefaultSessionCookie, DefaultSessionHeader, opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if inst == nil {
				o.onError(w, r, jam.ErrModuleNotConfigured)
				return
			}

			id, ok := credential(r, o, false)
			if !ok {
				o.onError(w, r, jam.ErrFormat)
				return
			}

			ctx := requestContext(r)
			data, err := inst.SessionGet(ctx, id)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, &SessionData{ID: id, Data: data})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// credential reads the header first, then the cookie.
func credential(r *http.Request, o options, bearer bool) (string, bool) {
	if o.header != "" {
		if v := r.Header.Get(o.header); v != "" {
			if bearer && strings.EqualFold(o.header, "Authorization") {
				return bearerToken(v)
			}
			return v, true
		}
	}
	if o.cookie != "" {
		if c, err := r.Cookie(o.cookie); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = jam.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = jam.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
