package session

import (
	"strings"

	"github.com/MrEthical07/jam/paseto"
)

// Marker prefixes every sealed session ID and payload.
const Marker = "J$_"

// sealer encrypts IDs and payloads with PASETO v4.local.
type sealer struct {
	codec paseto.Codec
}

func newSealer(key any) (*sealer, error) {
	codec, err := paseto.V4Key(paseto.Local, key)
	if err != nil {
		return nil, err
	}
	return &sealer{codec: codec}, nil
}

func (s *sealer) seal(plain string) (string, error) {
	token, err := s.codec.Encode(map[string]any{"d": plain}, nil)
	if err != nil {
		return "", err
	}
	return Marker + token, nil
}

func (s *sealer) open(sealed string) (string, bool) {
	if !strings.HasPrefix(sealed, Marker) {
		return "", false
	}
	payload, _, err := s.codec.Decode(sealed[len(Marker):])
	if err != nil {
		return "", false
	}
	plain, ok := payload["d"].(string)
	return plain, ok
}
