package wire

import (
	"reflect"
	"testing"
)

func TestCodecRoundTripsMessages(t *testing.T) {
	c := gobCodec{}
	in := &HandshakeRequest{
		ProtocolVersion: 1,
		ClientInfo:      map[string]string{"lang": "go"},
	}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := &HandshakeRequest{}
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch\n got:  %#v\n want: %#v", out, in)
	}
}

func TestCodecHandlesFieldlessMessages(t *testing.T) {
	c := gobCodec{}
	data, err := c.Marshal(&ConfigureResponse{})
	if err != nil {
		t.Fatalf("Marshal empty message: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("len(data) = %d, want 0 for a fieldless message", len(data))
	}
	if err := c.Unmarshal(data, &ConfigureResponse{}); err != nil {
		t.Fatalf("Unmarshal empty message: %v", err)
	}
}
