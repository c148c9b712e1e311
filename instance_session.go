package jam

import (
	"context"
	"errors"

	"github.com/MrEthical07/jam/session"
)

// SessionCreate stores data for sessionKey and returns the new session ID.
func (i *Instance) SessionCreate(ctx context.Context, sessionKey string, data map[string]any) (string, error) {
	if i.sessions == nil {
		return "", errModule("session")
	}
	id, err := i.sessions.Create(ctx, sessionKey, data)
	if err != nil {
		i.emitAudit(ctx, AuditSessionCreate, false, sessionKey, "", err, nil)
		return "", err
	}
	i.metricInc(MetricSessionCreated)
	i.emitAudit(ctx, AuditSessionCreate, true, sessionKey, id, nil, nil)
	return id, nil
}

// SessionGet returns the data of sessionID, or session.ErrNotFound.
func (i *Instance) SessionGet(ctx context.Context, sessionID string) (map[string]any, error) {
	if i.sessions == nil {
		return nil, errModule("session")
	}
	data, err := i.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			i.metricInc(MetricSessionMiss)
		}
		i.emitAudit(ctx, AuditSessionGet, false, "", "", err, nil)
		return nil, err
	}
	i.metricInc(MetricSessionHit)
	return data, nil
}

// SessionUpdate replaces the data of an existing session.
func (i *Instance) SessionUpdate(ctx context.Context, sessionID string, data map[string]any) error {
	if i.sessions == nil {
		return errModule("session")
	}
	if err := i.sessions.Update(ctx, sessionID, data); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			i.metricInc(MetricSessionMiss)
		}
		return err
	}
	i.metricInc(MetricSessionUpdated)
	return nil
}

// SessionDelete removes sessionID. Unknown IDs are not an error.
func (i *Instance) SessionDelete(ctx context.Context, sessionID string) error {
	if i.sessions == nil {
		return errModule("session")
	}
	if err := i.sessions.Delete(ctx, sessionID); err != nil {
		i.emitAudit(ctx, AuditSessionDelete, false, "", "", err, nil)
		return err
	}
	i.metricInc(MetricSessionDeleted)
	i.emitAudit(ctx, AuditSessionDelete, true, "", "", nil, nil)
	return nil
}

// SessionClear removes every session of sessionKey.
func (i *Instance) SessionClear(ctx context.Context, sessionKey string) error {
	if i.sessions == nil {
		return errModule("session")
	}
	if err := i.sessions.Clear(ctx, sessionKey); err != nil {
		i.emitAudit(ctx, AuditSessionClear, false, sessionKey, "", err, nil)
		return err
	}
	i.metricInc(MetricSessionCleared)
	i.emitAudit(ctx, AuditSessionClear, true, sessionKey, "", nil, nil)
	return nil
}

// SessionRework moves a session to a fresh ID and returns it.
func (i *Instance) SessionRework(ctx context.Context, sessionID string) (string, error) {
	if i.sessions == nil {
		return "", errModule("session")
	}
	next, err := i.sessions.Rework(ctx, sessionID)
	if err != nil {
		i.emitAudit(ctx, AuditSessionRework, false, "", "", err, nil)
		return "", err
	}
	i.metricInc(MetricSessionReworked)
	i.emitAudit(ctx, AuditSessionRework, true, "", next, nil, nil)
	return next, nil
}
