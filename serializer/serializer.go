// Package serializer converts claim mappings to and from bytes.
//
// JSON is the default and is canonical: keys are emitted in sorted order with
// compact separators, so equal mappings always produce equal bytes.
package serializer

import (
	"bytes"
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/MrEthical07/jam/errs"
)

// Serializer encodes claim mappings for tokens, footers and session payloads.
type Serializer interface {
	Dumps(v map[string]any) ([]byte, error)
	Loads(data []byte) (map[string]any, error)
}

// JSON is the canonical JSON serializer. Loads returns numbers as json.Number.
type JSON struct{}

// Default returns the serializer used when none is configured.
func Default() Serializer { return JSON{} }

func (JSON) Dumps(v map[string]any) ([]byte, error) {
	if v == nil {
		v = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errs.Wrap(errs.ErrFormat, "serializer.encode", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (JSON) Loads(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errs.Formatf("serializer.decode", "payload is not a JSON object")
	}
	// Numbers stay json.Number so integers beyond 2^53 survive a round trip.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errs.Wrap(errs.ErrFormat, "serializer.decode", err)
	}
	if dec.InputOffset() != int64(len(trimmed)) {
		return nil, errs.Formatf("serializer.decode", "trailing data after JSON object")
	}
	return out, nil
}

// CBOR encodes mappings with core deterministic CBOR.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds a deterministic CBOR serializer.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "serializer.cbor", err)
	}
	dec, err := cbor.DecOptions{DefaultMapType: mapType}.DecMode()
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "serializer.cbor", err)
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

func (c *CBOR) Dumps(v map[string]any) ([]byte, error) {
	if v == nil {
		v = map[string]any{}
	}
	out, err := c.enc.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFormat, "serializer.encode", err)
	}
	return out, nil
}

func (c *CBOR) Loads(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := c.dec.Unmarshal(data, &out); err != nil {
		return nil, errs.Wrap(errs.ErrFormat, "serializer.decode", err)
	}
	if out == nil {
		return nil, errs.Formatf("serializer.decode", "payload is not a CBOR map")
	}
	return out, nil
}
