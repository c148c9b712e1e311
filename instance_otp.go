package jam

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/jam/internal/limiter"
	"github.com/MrEthical07/jam/otp"
)

// newOTP builds a generator for secret from the OTP config. HOTP callers use
// the embedded HOTP.
func (i *Instance) newOTP(secret any) (*otp.TOTP, error) {
	cfg := i.config.OTP
	t, err := otp.NewTOTP(secret, cfg.Digits, cfg.Digest, cfg.Interval)
	if err != nil {
		return nil, err
	}
	t.Now = i.now
	return t, nil
}

func (i *Instance) hotp() bool {
	return strings.EqualFold(i.config.OTP.Type, "hotp")
}

// OTPCode returns the code for secret. For HOTP factor is the counter; for
// TOTP it is a unix time in seconds, with zero meaning now.
func (i *Instance) OTPCode(secret any, factor int64) (string, error) {
	if i.config.OTP == nil {
		return "", errModule("otp")
	}
	g, err := i.newOTP(secret)
	if err != nil {
		return "", err
	}
	if i.hotp() {
		return g.HOTP.At(uint64(max(factor, 0)))
	}
	if factor <= 0 {
		return g.Code()
	}
	return g.At(time.Unix(factor, 0))
}

// OTPVerify checks code against secret, returning ErrOTPInvalid on mismatch.
// factor has the same meaning as in OTPCode. The configured window is the
// TOTP drift in steps or the HOTP look-ahead.
func (i *Instance) OTPVerify(ctx context.Context, secret any, code string, factor int64) error {
	return i.OTPVerifySubject(ctx, "", secret, code, factor)
}

// OTPVerifySubject is OTPVerify with attempt throttling keyed by subject. When
// otp.max_attempts is set, a subject that used its budget gets
// ErrOTPRateLimited until the cooldown window ends, and a success resets the
// count. An empty subject is never throttled.
func (i *Instance) OTPVerifySubject(ctx context.Context, subject string, secret any, code string, factor int64) error {
	if i.config.OTP == nil {
		return errModule("otp")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	throttled := i.otpLimiter != nil && subject != ""

	err := func() error {
		if throttled {
			if err := i.otpLimiter.Check(ctx, subject); err != nil {
				if errors.Is(err, limiter.ErrRateLimited) {
					return ErrOTPRateLimited
				}
				return err
			}
		}
		return i.checkOTP(secret, code, factor)
	}()

	if throttled {
		switch {
		case err == nil:
			if rerr := i.otpLimiter.Reset(ctx, subject); rerr != nil {
				i.logger.Warn("otp attempt reset failed", "subject", subject, "error", rerr)
			}
		case errors.Is(err, ErrOTPInvalid):
			if rerr := i.otpLimiter.RecordFailure(ctx, subject); rerr != nil && !errors.Is(rerr, limiter.ErrRateLimited) {
				i.logger.Warn("otp attempt record failed", "subject", subject, "error", rerr)
			}
		}
	}

	if err != nil {
		i.metricInc(MetricOTPFailure)
		i.emitAudit(ctx, AuditOTPVerify, false, subject, "", err, nil)
		return err
	}
	i.metricInc(MetricOTPSuccess)
	i.emitAudit(ctx, AuditOTPVerify, true, subject, "", nil, nil)
	return nil
}

func (i *Instance) checkOTP(secret any, code string, factor int64) error {
	g, err := i.newOTP(secret)
	if err != nil {
		return err
	}

	var ok bool
	if i.hotp() {
		_, ok, err = g.HOTP.Verify(code, uint64(max(factor, 0)), i.config.OTP.Window)
	} else {
		var at time.Time
		if factor > 0 {
			at = time.Unix(factor, 0)
		}
		ok, err = g.Verify(code, at, i.config.OTP.Window)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPInvalid
	}
	return nil
}

// OTPURI returns an otpauth:// provisioning URI for a TOTP secret, using the
// configured issuer.
func (i *Instance) OTPURI(secret any, name string) (string, error) {
	if i.config.OTP == nil {
		return "", errModule("otp")
	}
	g, err := i.newOTP(secret)
	if err != nil {
		return "", err
	}
	return g.ProvisioningURI(name, i.config.OTP.Issuer), nil
}

// OTPSecret generates a random base32 secret of n bytes (20 when n is zero).
func OTPSecret(n int) (string, error) {
	return otp.GenerateSecret(n)
}
