// Package lists keeps black and white lists of JWTs and adapts them into the
// post-verification hook of jwt.Codec.
package lists

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/jwt"
)

// Kind selects how a list is interpreted by Checker.
type Kind string

const (
	// Black rejects tokens present in the list.
	Black Kind = "black"
	// White rejects tokens absent from the list.
	White Kind = "white"
)

// ErrUnavailable wraps storage failures.
var ErrUnavailable = errors.New("jwt list unavailable")

// Entry is one listed token.
type Entry struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// List stores raw token strings.
type List interface {
	Kind() Kind
	Add(ctx context.Context, token string) error
	Check(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
}

// ParseKind accepts "black" or "white".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Black, White:
		return Kind(s), nil
	default:
		return "", errs.Configf("lists.kind", "unknown list type %q", s)
	}
}

// Checker adapts l into a jwt.ListChecker. Storage failures reject the token.
func Checker(l List) jwt.ListChecker {
	return jwt.ListCheckerFunc(func(ctx context.Context, token string) error {
		present, err := l.Check(ctx, token)
		if err != nil {
			return errs.Wrap(errs.ErrListed, "jwt.list_unavailable", err)
		}
		switch l.Kind() {
		case Black:
			if present {
				return errs.New(errs.ErrListed, "jwt.blacklisted", "token is blacklisted")
			}
		case White:
			if !present {
				return errs.New(errs.ErrListed, "jwt.not_whitelisted", "token is not whitelisted")
			}
		default:
			return errs.Configf("lists.kind", "unknown list type %q", l.Kind())
		}
		return nil
	})
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
