package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sync"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/ref"
)

// Envelope is what actually crosses the wire: a header plus its opaque
// payload. spec.md §1 places the reflective type system and serializer
// out of scope, consumed only through encode/decode/uniformTypeName; this
// is our implementation of that contract, using encoding/gob exactly as
// LINYIYANG-DeqinActor's remote.go gobCodec does for the same
// out-of-band-payload concern.
type Envelope struct {
	Header  ref.MessageHeader
	TypeTag string
	Payload []byte
}

// Codec implements the encode/decode/uniformTypeName collaborator named
// in spec.md §6.
type Codec struct {
	mu   sync.Mutex
	seen map[string]reflect.Type
}

// NewCodec returns a ready-to-use Codec. Payload types must be
// gob-registered (via Register) by every process that might decode them,
// exactly as gob requires for interface{} values.
func NewCodec() *Codec {
	return &Codec{seen: make(map[string]reflect.Type)}
}

// Register makes a concrete payload type known to the codec so it can be
// decoded on the receiving side. Call once per payload type, on every
// node that might send or receive it.
func (c *Codec) Register(sample interface{}) {
	t := reflect.TypeOf(sample)
	c.mu.Lock()
	c.seen[UniformTypeName(sample)] = t
	c.mu.Unlock()
	gob.Register(sample)
}

// Encode serializes value to bytes.
func (c *Codec) Encode(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes back into a value. typeTag is informational
// only (gob self-describes); it is checked against the decoded value's
// uniform type name as a defense against payload corruption.
func (c *Codec) Decode(data []byte, typeTag string) (interface{}, error) {
	var value interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", actorerr.ErrDecodeFailed, err)
	}
	if typeTag != "" && UniformTypeName(value) != typeTag {
		return nil, fmt.Errorf("%w: type tag mismatch: want %s got %s",
			actorerr.ErrDecodeFailed, typeTag, UniformTypeName(value))
	}
	return value, nil
}

// UniformTypeName returns a serializer-stable name for value's type,
// mirroring cppa's to_uniform_name used the same way in
// original_source/src/mailman.cpp's debug trace of outgoing messages.
func UniformTypeName(value interface{}) string {
	t := reflect.TypeOf(value)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// EncodeEnvelope builds and serializes a full Envelope for hdr/payload.
func (c *Codec) EncodeEnvelope(hdr ref.MessageHeader, payload interface{}) ([]byte, error) {
	body, err := c.Encode(payload)
	if err != nil {
		return nil, err
	}
	env := Envelope{Header: hdr, TypeTag: UniformTypeName(payload), Payload: body}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEnvelope reverses EncodeEnvelope, also decoding the inner payload.
func (c *Codec) DecodeEnvelope(data []byte) (ref.MessageHeader, interface{}, error) {
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return ref.MessageHeader{}, nil, fmt.Errorf("%w: %v", actorerr.ErrDecodeFailed, err)
	}
	payload, err := c.Decode(env.Payload, env.TypeTag)
	if err != nil {
		return ref.MessageHeader{}, nil, err
	}
	return env.Header, payload, nil
}
