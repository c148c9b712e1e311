package jam

import (
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/limiter"
	"github.com/MrEthical07/jam/jwt"
	"github.com/MrEthical07/jam/jwt/lists"
	"github.com/MrEthical07/jam/oauth2"
	"github.com/MrEthical07/jam/paseto"
	"github.com/MrEthical07/jam/serializer"
	"github.com/MrEthical07/jam/session"
)

// Builder assembles an Instance. Builder instances are configured during
// initialization and used for exactly one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *slog.Logger

	serializer     serializer.Serializer
	sessionBackend session.Backend
	jwtList        lists.List
	auditSink      AuditSink
	httpClient     *http.Client
	clock          func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis shares client with every Redis-backed module, taking precedence
// over redis_url settings. The Instance never closes a shared client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger replaces the logger built from Config.Log.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithSerializer replaces the serializer selected by Config.Serializer.
func (b *Builder) WithSerializer(s serializer.Serializer) *Builder {
	b.serializer = s
	return b
}

// WithSessionBackend replaces the backend selected by Config.Session.Backend.
func (b *Builder) WithSessionBackend(backend session.Backend) *Builder {
	b.sessionBackend = backend
	return b
}

// WithJWTList replaces the list built from Config.JWT.List.
func (b *Builder) WithJWTList(l lists.List) *Builder {
	b.jwtList = l
	return b
}

// WithAuditSink sets the audit sink. Without one, enabled audit goes to the logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient sets the client used for OAuth2 token endpoint calls.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithClock replaces time.Now for claim timestamps and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// module is one entry of the build registry. enabled reports whether the
// configuration asks for it; build wires it into the Instance.
type module struct {
	name    string
	enabled func(*Config) bool
	build   func(*Builder, *Instance) error
}

// modules is the explicit registry consulted by Build, in build order.
var modules = []module{
	{name: "jwt", enabled: func(c *Config) bool { return c.JWT != nil }, build: buildJWT},
	{name: "session", enabled: func(c *Config) bool { return c.Session != nil }, build: buildSession},
	{name: "oauth2", enabled: func(c *Config) bool { return len(c.OAuth2) > 0 }, build: buildOAuth2},
	{name: "paseto", enabled: func(c *Config) bool { return c.PASETO != nil }, build: buildPASETO},
	{name: "otp", enabled: func(c *Config) bool { return c.OTP != nil }, build: buildOTP},
}

// Build validates the configuration and constructs every configured module.
// On error, resources opened so far are released.
func (b *Builder) Build() (*Instance, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		l, err := NewLogger(cfg.Log, nil)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	ser := b.serializer
	if ser == nil {
		s, err := serializerFor(cfg.Serializer)
		if err != nil {
			return nil, err
		}
		ser = s
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}

	inst := &Instance{
		config:     cfg,
		logger:     logger,
		serializer: ser,
		now:        now,
		metrics:    NewMetrics(cfg.Metrics),
	}

	for _, m := range modules {
		if !m.enabled(&inst.config) {
			continue
		}
		if err := m.build(b, inst); err != nil {
			_ = inst.Close()
			return nil, err
		}
		logger.Debug("jam module ready", "module", m.name)
	}

	inst.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	b.built = true

	return inst, nil
}

func serializerFor(name string) (serializer.Serializer, error) {
	switch name {
	case "", "json":
		return serializer.Default(), nil
	case "cbor":
		return serializer.NewCBOR()
	default:
		return nil, errs.Configf("config.serializer", "unknown serializer %q", name)
	}
}

// redisFor returns the shared client, or opens one from url and registers it
// for Close.
func (b *Builder) redisFor(inst *Instance, section, url string) (redis.UniversalClient, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	if url == "" {
		return nil, errs.Configf("config."+section+".redis_url", "%s redis backend requires WithRedis or redis_url", section)
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "config."+section+".redis_url", err)
	}
	client := redis.NewClient(opt)
	inst.closers = append(inst.closers, client.Close)
	return client, nil
}

/*
====================================
MODULE CONSTRUCTORS
====================================
*/

func buildJWT(b *Builder, inst *Instance) error {
	cfg := inst.config.JWT

	opts := []jwt.Option{
		jwt.WithSerializer(inst.serializer),
		jwt.WithLogger(inst.logger.With("module", "jwt")),
	}
	if cfg.Password != "" {
		opts = append(opts, jwt.WithPassword(cfg.Password))
	}

	secret := cfg.Secret
	if secret == "" {
		secret = cfg.PublicKey
	}
	codec, err := jwt.New(cfg.Alg, secret, opts...)
	if err != nil {
		return err
	}
	inst.jwt = codec
	inst.jwtListed = codec
	if cfg.Secret != "" && cfg.PublicKey != "" {
		inst.jwtVerifyKey = cfg.PublicKey
	}

	list := b.jwtList
	if list == nil && cfg.List != nil {
		list, err = b.buildList(inst, cfg.List)
		if err != nil {
			return err
		}
	}
	if list != nil {
		inst.jwtList = list
		inst.jwtListed, err = jwt.New(cfg.Alg, secret, append(opts, jwt.WithListChecker(lists.Checker(list)))...)
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildList(inst *Instance, cfg *JWTListConfig) (lists.List, error) {
	kind, err := lists.ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "memory":
		return lists.NewMemoryList(kind, cfg.TTL), nil
	case "json":
		return lists.NewJSONList(cfg.Path, kind), nil
	default:
		client, err := b.redisFor(inst, "jwt.list", cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		opts := []lists.RedisOption{lists.WithRedisLogger(inst.logger.With("module", "jwt.list"))}
		if cfg.TTL > 0 {
			opts = append(opts, lists.WithTTL(cfg.TTL))
		}
		if cfg.Prefix != "" {
			opts = append(opts, lists.WithPrefix(cfg.Prefix))
		}
		return lists.NewRedisList(client, kind, opts...), nil
	}
}

func buildSession(b *Builder, inst *Instance) error {
	cfg := inst.config.Session

	backend := b.sessionBackend
	if backend == nil {
		switch cfg.Backend {
		case "json":
			backend = session.NewJSONBackend(cfg.Path)
		default:
			client, err := b.redisFor(inst, "session", cfg.RedisURL)
			if err != nil {
				return err
			}
			backend = session.NewRedisBackend(client, cfg.Prefix)
		}
	}

	opts := []session.Option{
		session.WithTTL(cfg.TTL),
		session.WithSerializer(inst.serializer),
		session.WithLogger(inst.logger.With("module", "session")),
	}
	if cfg.EncryptionKey != "" {
		opts = append(opts, session.WithEncryption(cfg.EncryptionKey))
	}
	m, err := session.NewManager(backend, opts...)
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, "config.session", err)
	}
	inst.sessions = m
	return nil
}

func buildOAuth2(b *Builder, inst *Instance) error {
	opts := []oauth2.Option{oauth2.WithLogger(inst.logger.With("module", "oauth2"))}
	if b.httpClient != nil {
		opts = append(opts, oauth2.WithHTTPClient(b.httpClient))
	}
	clients, err := oauth2.NewClients(inst.config.OAuth2, opts...)
	if err != nil {
		return err
	}
	inst.oauth2 = clients
	return nil
}

func buildPASETO(_ *Builder, inst *Instance) error {
	cfg := inst.config.PASETO

	opts := []paseto.Option{
		paseto.WithSerializer(inst.serializer),
		paseto.WithLogger(inst.logger.With("module", "paseto")),
	}
	if cfg.Password != "" {
		opts = append(opts, paseto.WithPassword(cfg.Password))
	}
	codec, err := paseto.Key(paseto.Version(cfg.Version), paseto.Purpose(cfg.Purpose), cfg.Key, opts...)
	if err != nil {
		return err
	}
	inst.paseto = codec
	return nil
}

func buildOTP(b *Builder, inst *Instance) error {
	// Secrets are per user; probe the settings with a throwaway secret so
	// misconfiguration fails at Build.
	if _, err := inst.newOTP(make([]byte, 20)); err != nil {
		return err
	}

	cfg := inst.config.OTP
	if cfg.MaxAttempts > 0 {
		client, err := b.redisFor(inst, "otp", cfg.RedisURL)
		if err != nil {
			return err
		}
		inst.otpLimiter = limiter.New(client, limiter.Config{
			MaxAttempts: cfg.MaxAttempts,
			Cooldown:    cfg.Cooldown,
			Prefix:      cfg.Prefix,
		})
	}
	return nil
}

/*
====================================
INSTANCE LIFECYCLE
====================================
*/

// Close flushes the audit dispatcher and closes Redis clients opened from
// redis_url. Clients passed through WithRedis are left open.
func (i *Instance) Close() error {
	if i == nil {
		return nil
	}
	if i.audit != nil {
		i.audit.Close()
	}
	var errList []error
	for _, c := range i.closers {
		if err := c(); err != nil {
			errList = append(errList, err)
		}
	}
	i.closers = nil
	return errors.Join(errList...)
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT != nil {
		j := *cfg.JWT
		if cfg.JWT.List != nil {
			l := *cfg.JWT.List
			j.List = &l
		}
		out.JWT = &j
	}
	if cfg.PASETO != nil {
		p := *cfg.PASETO
		out.PASETO = &p
	}
	if cfg.Session != nil {
		s := *cfg.Session
		out.Session = &s
	}
	if cfg.OTP != nil {
		o := *cfg.OTP
		out.OTP = &o
	}
	if cfg.OAuth2 != nil {
		out.OAuth2 = maps.Clone(cfg.OAuth2)
	}
	return out
}
