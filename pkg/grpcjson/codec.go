// Package grpcjson registers a JSON codec with gRPC so services can exchange
// plain Go structs without protoc-generated stubs.
package grpcjson

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Name is the content-subtype negotiated on the wire ("application/grpc+json").
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals gRPC messages as JSON.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return Name
}

// CallOption forces JSON encoding for a client call.
func CallOption() grpc.CallOption {
	return grpc.ForceCodecCallOption{Codec: Codec{}}
}
