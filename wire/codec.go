package wire

import (
	"bytes"
	"encoding/gob"
	"reflect"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC codec name this package registers under. The server
// and client both select it explicitly (grpc.CallContentSubtype /
// encoding.RegisterCodec) instead of relying on gRPC's default protobuf
// codec, since wire messages here are plain Go structs, not protoc-generated
// message types.
const CodecName = "gwp-gob"

// gobCodec implements encoding.Codec using encoding/gob. It is registered
// once via init.
//
// gob rejects struct types with no exported fields, which several messages
// (ConfigureResponse, ResetResponse, CloseResponse, ListDatabasesRequest)
// are; those marshal to an empty payload instead.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	if isFieldless(v) {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 && isFieldless(v) {
		return nil
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return CodecName }

// isFieldless reports whether v is (a pointer to) a struct with no exported
// fields.
func isFieldless(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}
