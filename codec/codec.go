package codec

// Encoder turns a V into bytes for storage.
type Encoder[V any] interface {
	Encode(V) ([]byte, error)
}

// Decoder turns a payload into a V. Operations use it to decode transport
// payloads; stores use it to read entries back.
type Decoder[V any] interface {
	Decode([]byte) (V, error)
}

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encoder[V]
	Decoder[V]
}

// DecoderFunc adapts a plain function to a Decoder.
type DecoderFunc[V any] func([]byte) (V, error)

func (f DecoderFunc[V]) Decode(b []byte) (V, error) { return f(b) }
