package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR stores values as CBOR. Construct with NewCBOR or MustCBOR.
//
// Times are written as RFC 3339 text so release dates keep their zone.
// Like Msgpack, decoding fails on unknown fields.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

// NewCBOR builds the codec. deterministic selects RFC 8949 core
// deterministic encoding: equal values always produce equal bytes.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	var (
		c   CBOR[V]
		err error
	)
	if c.enc, err = eo.EncMode(); err != nil {
		return CBOR[V]{}, err
	}
	c.dec, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return c, nil
}

func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(b, &v); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}
