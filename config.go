package jam

import (
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/jam/config"
	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/jwt"
	"github.com/MrEthical07/jam/jwt/lists"
	"github.com/MrEthical07/jam/oauth2"
	"github.com/MrEthical07/jam/otp"
	"github.com/MrEthical07/jam/paseto"
)

// AuthType selects the token format used by middleware and the CLI defaults.
type AuthType string

const (
	// AuthJWT issues JSON Web Tokens.
	AuthJWT AuthType = "jwt"
	// AuthPASETO issues PASETO tokens.
	AuthPASETO AuthType = "paseto"
)

// Config is the complete Instance configuration. Nil module sections leave the
// module unconfigured; calling it returns ErrModuleNotConfigured.
//
// Config values are read once by New and treated as immutable afterwards.
type Config struct {
	AuthType   AuthType                         `yaml:"auth_type" env:"AUTH_TYPE"`
	Serializer string                           `yaml:"serializer" env:"SERIALIZER"`
	JWT        *JWTConfig                       `yaml:"jwt" envPrefix:"JWT_"`
	PASETO     *PASETOConfig                    `yaml:"paseto" envPrefix:"PASETO_"`
	Session    *SessionConfig                   `yaml:"session" envPrefix:"SESSION_"`
	OTP        *OTPConfig                       `yaml:"otp" envPrefix:"OTP_"`
	OAuth2     map[string]oauth2.ProviderConfig `yaml:"oauth2"`
	Log        LogConfig                        `yaml:"log" envPrefix:"LOG_"`
	Audit      AuditConfig                      `yaml:"audit" envPrefix:"AUDIT_"`
	Metrics    MetricsConfig                    `yaml:"metrics" envPrefix:"METRICS_"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the JWT module.
type JWTConfig struct {
	Alg string `yaml:"alg" env:"ALG"`
	// Secret is an HMAC secret, a PEM private or public key, or a path to one.
	Secret string `yaml:"secret" env:"SECRET"`
	// PublicKey optionally overrides the verification key.
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
	Password  string `yaml:"password" env:"PASSWORD"`
	// Expire is the lifetime MakePayload uses when called with zero.
	Expire time.Duration   `yaml:"expire" env:"EXPIRE"`
	List   *JWTListConfig `yaml:"list" envPrefix:"LIST_"`
}

// JWTListConfig configures the optional black or white list.
type JWTListConfig struct {
	Type     string        `yaml:"type" env:"TYPE"`
	Backend  string        `yaml:"backend" env:"BACKEND"`
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
	Path     string        `yaml:"path" env:"PATH"`
}

/*
====================================
PASETO CONFIG
====================================
*/

// PASETOConfig configures the PASETO module.
type PASETOConfig struct {
	Version  string        `yaml:"version" env:"VERSION"`
	Purpose  string        `yaml:"purpose" env:"PURPOSE"`
	Key      string        `yaml:"key" env:"KEY"`
	Password string        `yaml:"password" env:"PASSWORD"`
	Expire   time.Duration `yaml:"expire" env:"EXPIRE"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the session module.
type SessionConfig struct {
	Backend  string        `yaml:"backend" env:"BACKEND"`
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	Path     string        `yaml:"path" env:"PATH"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
	// EncryptionKey enables sealed session IDs and payloads when set.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures OTP helpers.
type OTPConfig struct {
	Type     string        `yaml:"type" env:"TYPE"`
	Digits   int           `yaml:"digits" env:"DIGITS"`
	Digest   string        `yaml:"digest" env:"DIGEST"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// Window is the accepted drift in steps (TOTP) or look-ahead (HOTP).
	Window int    `yaml:"window" env:"WINDOW"`
	Issuer string `yaml:"issuer" env:"ISSUER"`
	// MaxAttempts enables per-subject throttling of OTPVerifySubject when
	// positive. Counters live in Redis.
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	Cooldown    time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	Prefix      string        `yaml:"prefix" env:"PREFIX"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// LogConfig configures the logger built when WithLogger is not given. An
// empty Level discards all output.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// AuditConfig configures asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"DROP_IF_FULL"`
}

// MetricsConfig configures in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULTS AND LOADING
====================================
*/

// DefaultConfig returns a Config with every module unset and observability
// defaults filled in.
func DefaultConfig() Config {
	return Config{
		AuthType:   AuthJWT,
		Serializer: "json",
		Log:        LogConfig{Format: "text"},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// LoadConfig reads a YAML or JSON file, selects the "jam" section and applies
// JAM_* environment overrides on top of DefaultConfig.
func LoadConfig(path string, opts ...config.Option) (Config, error) {
	cfg := DefaultConfig()
	opts = append([]config.Option{config.WithPointer(config.DefaultPointer)}, opts...)
	if err := config.Load(path, &cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AuthType == "" {
		c.AuthType = AuthJWT
	}
	if c.Serializer == "" {
		c.Serializer = "json"
	}
	if c.Session != nil {
		if c.Session.Backend == "" {
			c.Session.Backend = "redis"
		}
		if c.Session.TTL == 0 {
			c.Session.TTL = time.Hour
		}
	}
	if c.OTP != nil {
		if c.OTP.Type == "" {
			c.OTP.Type = "totp"
		}
		if c.OTP.Digits == 0 {
			c.OTP.Digits = otp.DefaultDigits
		}
		if c.OTP.Digest == "" {
			c.OTP.Digest = otp.SHA1
		}
		if c.OTP.Interval == 0 {
			c.OTP.Interval = otp.DefaultInterval
		}
	}
	if c.JWT != nil && c.JWT.List != nil && c.JWT.List.Backend == "" {
		c.JWT.List.Backend = "redis"
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = 1024
	}
}

// Validate reports the first configuration problem as an errs.ErrConfiguration.
func (c *Config) Validate() error {
	switch c.AuthType {
	case "", AuthJWT, AuthPASETO:
	default:
		return errs.Configf("config.auth_type", "auth_type must be jwt or paseto, got %q", c.AuthType)
	}
	switch c.Serializer {
	case "", "json", "cbor":
	default:
		return errs.Configf("config.serializer", "serializer must be json or cbor, got %q", c.Serializer)
	}

	// JWT
	if c.JWT != nil {
		if !slices.Contains(jwt.Algorithms(), c.JWT.Alg) {
			return errs.Configf("config.jwt.alg", "unsupported jwt algorithm %q", c.JWT.Alg)
		}
		if c.JWT.Secret == "" && c.JWT.PublicKey == "" {
			return errs.Configf("config.jwt.secret", "jwt requires secret or public_key")
		}
		if c.JWT.Expire < 0 {
			return errs.Configf("config.jwt.expire", "jwt expire must be >= 0")
		}
		if l := c.JWT.List; l != nil {
			if _, err := lists.ParseKind(l.Type); err != nil {
				return err
			}
			switch l.Backend {
			case "", "redis", "memory":
			case "json":
				if l.Path == "" {
					return errs.Configf("config.jwt.list.path", "json list requires path")
				}
			default:
				return errs.Configf("config.jwt.list.backend", "unknown list backend %q", l.Backend)
			}
		}
	}

	// PASETO
	if c.PASETO != nil {
		if !slices.Contains(paseto.Versions(), paseto.Version(c.PASETO.Version)) {
			return errs.Configf("config.paseto.version", "unsupported paseto version %q", c.PASETO.Version)
		}
		if p := paseto.Purpose(c.PASETO.Purpose); p != paseto.Local && p != paseto.Public {
			return errs.Configf("config.paseto.purpose", "paseto purpose must be local or public, got %q", c.PASETO.Purpose)
		}
		if c.PASETO.Key == "" {
			return errs.Configf("config.paseto.key", "paseto requires key")
		}
	}

	// Session
	if c.Session != nil {
		switch c.Session.Backend {
		case "", "redis":
		case "json":
			if c.Session.Path == "" {
				return errs.Configf("config.session.path", "json session backend requires path")
			}
		default:
			return errs.Configf("config.session.backend", "unknown session backend %q", c.Session.Backend)
		}
		if c.Session.TTL < 0 {
			return errs.Configf("config.session.ttl", "session ttl must be >= 0")
		}
	}

	// OTP
	if c.OTP != nil {
		switch strings.ToLower(c.OTP.Type) {
		case "", "totp", "hotp":
		default:
			return errs.Configf("config.otp.type", "otp type must be totp or hotp, got %q", c.OTP.Type)
		}
		switch strings.ToUpper(c.OTP.Digest) {
		case "", otp.SHA1, otp.SHA256, otp.SHA512:
		default:
			return errs.Configf("config.otp.digest", "unsupported otp digest %q", c.OTP.Digest)
		}
		if c.OTP.Digits < 0 || c.OTP.Digits > 10 {
			return errs.Configf("config.otp.digits", "otp digits must be between 1 and 10")
		}
		if c.OTP.Window < 0 {
			return errs.Configf("config.otp.window", "otp window must be >= 0")
		}
		if c.OTP.MaxAttempts < 0 || c.OTP.Cooldown < 0 {
			return errs.Configf("config.otp.max_attempts", "otp max_attempts and cooldown must be >= 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errs.Configf("config.audit.buffer_size", "audit buffer_size must be >= 0")
	}
	return nil
}
