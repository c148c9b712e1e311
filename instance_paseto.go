package jam

import (
	"context"
	"time"

	"github.com/MrEthical07/jam/errs"
)

// CreatePASETO encodes payload with the configured version and purpose.
// footer may be nil, a string, []byte or a map.
func (i *Instance) CreatePASETO(payload map[string]any, footer any) (string, error) {
	if i.paseto == nil {
		return "", errModule("paseto")
	}
	token, err := i.paseto.Encode(payload, footer)
	if err != nil {
		return "", err
	}
	i.metricInc(MetricPASETOIssued)
	return token, nil
}

// VerifyPASETO decodes token and returns its payload and footer. checkExp
// rejects tokens past their exp claim with ErrExpired.
func (i *Instance) VerifyPASETO(ctx context.Context, token string, checkExp bool) (map[string]any, any, error) {
	if i.paseto == nil {
		return nil, nil, errModule("paseto")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer i.observeLatency(start)

	payload, footer, err := i.paseto.Decode(token)
	if err != nil {
		i.metricInc(MetricPASETORejected)
		i.emitAudit(ctx, AuditPASETOVerify, false, "", "", err, nil)
		return nil, nil, err
	}
	if checkExp && i.expired(payload) {
		err := errs.New(errs.ErrExpired, "paseto.expired", "token has expired")
		i.metricInc(MetricPASETOExpired)
		i.emitAudit(ctx, AuditPASETOVerify, false, subjectOf(payload), "", err, nil)
		return nil, nil, err
	}

	i.metricInc(MetricPASETOVerified)
	i.emitAudit(ctx, AuditPASETOVerify, true, subjectOf(payload), "", nil, nil)
	return payload, footer, nil
}
