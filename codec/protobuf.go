package codec

import (
	"google.golang.org/protobuf/proto"
)

var (
	protoMarshal   = proto.MarshalOptions{Deterministic: true}
	protoUnmarshal = proto.UnmarshalOptions{DiscardUnknown: true}
)

// Protobuf stores protobuf messages. Encoding is deterministic so equal
// messages produce equal entries.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

// NewProtobuf takes a constructor for an empty message, e.g.
// func() *pb.Video { return new(pb.Video) }.
func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg}
}

func (c Protobuf[T]) Encode(m T) ([]byte, error) { return protoMarshal.Marshal(m) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	if err := protoUnmarshal.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
