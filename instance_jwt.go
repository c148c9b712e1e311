package jam

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jam/errs"
)

// CreateJWT signs payload with the configured algorithm.
func (i *Instance) CreateJWT(payload map[string]any) (string, error) {
	if i.jwt == nil {
		return "", errModule("jwt")
	}
	token, err := i.jwt.Encode(payload)
	if err != nil {
		return "", err
	}
	i.metricInc(MetricJWTIssued)
	return token, nil
}

// VerifyJWT checks token and returns its payload. checkExp rejects tokens past
// their exp claim with ErrExpired. checkList consults the configured black or
// white list after the signature check; it is a no-op without a list.
func (i *Instance) VerifyJWT(ctx context.Context, token string, checkExp, checkList bool) (map[string]any, error) {
	if i.jwt == nil {
		return nil, errModule("jwt")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer i.observeLatency(start)

	codec := i.jwt
	if checkList {
		codec = i.jwtListed
	}
	payload, err := codec.DecodeContext(ctx, token, i.jwtVerifyKey)
	if err != nil {
		if errors.Is(err, errs.ErrListed) {
			i.metricInc(MetricJWTListed)
		} else {
			i.metricInc(MetricJWTRejected)
		}
		i.emitAudit(ctx, AuditJWTVerify, false, "", "", err, nil)
		return nil, err
	}

	if checkExp && i.expired(payload) {
		err := errs.New(errs.ErrExpired, "jwt.expired", "token has expired")
		i.metricInc(MetricJWTExpired)
		i.emitAudit(ctx, AuditJWTVerify, false, subjectOf(payload), "", err, nil)
		return nil, err
	}

	i.metricInc(MetricJWTVerified)
	i.emitAudit(ctx, AuditJWTVerify, true, subjectOf(payload), "", nil, nil)
	return payload, nil
}

// ListJWT adds token to the configured list. On a black list this revokes
// it; on a white list it admits it.
func (i *Instance) ListJWT(ctx context.Context, token string) error {
	if i.jwtList == nil {
		return errModule("jwt.list")
	}
	return i.jwtList.Add(ctx, token)
}

// UnlistJWT removes token from the configured list.
func (i *Instance) UnlistJWT(ctx context.Context, token string) error {
	if i.jwtList == nil {
		return errModule("jwt.list")
	}
	return i.jwtList.Delete(ctx, token)
}

func errModule(name string) error {
	return errs.Wrap(errs.ErrConfiguration, "jam.module_not_configured", ErrModuleNotConfigured).
		WithDetails("module", name)
}
