package keys

import (
	"os"
	"strings"

	"github.com/MrEthical07/jam/errs"
)

const maxPathLen = 4096

// LoadData resolves key material to bytes.
func LoadData(v any) ([]byte, error) {
	switch k := v.(type) {
	case nil:
		return nil, errs.Configf("keys.missing", "key material is required")
	case []byte:
		if len(k) == 0 {
			return nil, errs.Configf("keys.missing", "key material is empty")
		}
		return k, nil
	case string:
		if k == "" {
			return nil, errs.Configf("keys.missing", "key material is empty")
		}
		if isFile(k) {
			data, err := os.ReadFile(k)
			if err != nil {
				return nil, errs.Wrap(errs.ErrConfiguration, "keys.read", err)
			}
			return data, nil
		}
		return []byte(k), nil
	default:
		return nil, errs.Configf("keys.type", "unsupported key material type %T", v)
	}
}

// Password converts an optional password to bytes.
func Password(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	default:
		return nil, errs.Configf("keys.password", "unsupported password type %T", v)
	}
}

func isFile(s string) bool {
	if len(s) > maxPathLen || strings.ContainsAny(s, "\n\x00") || strings.HasPrefix(s, "-----") {
		return false
	}
	info, err := os.Stat(s)
	return err == nil && info.Mode().IsRegular()
}
