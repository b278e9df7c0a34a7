package wire

import (
	"reflect"
	"testing"

	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []gqltypes.Value{
		gqltypes.Null,
		gqltypes.Bool(true),
		gqltypes.Int(-42),
		gqltypes.Uint(42),
		gqltypes.Float64(3.5),
		gqltypes.Str("hello"),
		gqltypes.Raw([]byte{1, 2, 3}),
		gqltypes.List([]gqltypes.Value{gqltypes.Int(1), gqltypes.Str("a"), gqltypes.Null}),
		gqltypes.RecordOf([]gqltypes.Field{
			{Name: "name", Value: gqltypes.Str("Alice")},
			{Name: "age", Value: gqltypes.Int(30)},
		}),
		gqltypes.NodeOf(gqltypes.Node{
			ID:     []byte("n1"),
			Labels: []string{"Person", "Employee"},
			Properties: map[string]gqltypes.Value{
				"name": gqltypes.Str("Alice"),
			},
		}),
		gqltypes.PathOf(gqltypes.Path{
			Nodes: []gqltypes.Node{{ID: []byte("n1")}, {ID: []byte("n2")}},
			Edges: []gqltypes.Edge{{ID: []byte("e1"), Source: []byte("n1"), Target: []byte("n2"), Directed: true}},
		}),
		gqltypes.EdgeOf(gqltypes.Edge{
			ID:       []byte("e9"),
			Labels:   []string{"KNOWS"},
			Source:   []byte("n1"),
			Target:   []byte("n2"),
			Directed: true,
			Properties: map[string]gqltypes.Value{
				"since": gqltypes.Int(2019),
			},
		}),
		{Kind: gqltypes.KindDate, Date: gqltypes.Date{Year: 2024, Month: 6, Day: 15}},
		{Kind: gqltypes.KindLocalTime, LocalTime: gqltypes.LocalTime{Nanoseconds: 3600e9}},
		{Kind: gqltypes.KindZonedTime, ZonedTime: gqltypes.ZonedTime{Nanoseconds: 7200e9, OffsetMinutes: -300}},
		{Kind: gqltypes.KindLocalDateTime, LocalDateTime: gqltypes.LocalDateTime{
			Date: gqltypes.Date{Year: 1999, Month: 12, Day: 31},
			Time: gqltypes.LocalTime{Nanoseconds: 1},
		}},
		{Kind: gqltypes.KindZonedDateTime, ZonedDateTime: gqltypes.ZonedDateTime{
			Date: gqltypes.Date{Year: 2000, Month: 1, Day: 1},
			Time: gqltypes.ZonedTime{Nanoseconds: 42, OffsetMinutes: 60},
		}},
		{Kind: gqltypes.KindDuration, Duration: gqltypes.Duration{Months: 14, Nanoseconds: 900}},
		{Kind: gqltypes.KindDecimal, Decimal: gqltypes.Decimal{Unscaled: []byte{0x01, 0xff}, Scale: 2}},
		{Kind: gqltypes.KindBigInteger, BigInteger: gqltypes.BigInteger{Bytes: []byte{0x7f, 0x00}, Signed: true}},
		{Kind: gqltypes.KindBigFloat, BigFloat: gqltypes.BigFloat{Bytes: []byte{1, 2, 3, 4}, Width: 128}},
	}

	for i, v := range cases {
		w := ToWire(v)
		got := FromWire(w)
		if !reflect.DeepEqual(got, v) {
			t.Errorf("case %d: round trip mismatch\n got:  %#v\n want: %#v", i, got, v)
		}
	}
}

func TestNilWireIsNull(t *testing.T) {
	if got := FromWire(nil); got.Kind != gqltypes.KindNull {
		t.Errorf("FromWire(nil) = %#v, want Null", got)
	}
}

func TestStatusMsgRoundTrip(t *testing.T) {
	cause := status.New(status.InvalidSyntax, "unexpected token")
	s := status.GqlStatus{
		Code:    status.TransactionRollback,
		Message: "rolled back",
		Diagnostic: &status.Diagnostic{
			Operation:     "commit",
			OperationCode: "TX01",
			CurrentSchema: "prod",
		},
		Cause: &cause,
	}
	got := FromStatusMsg(ToStatusMsg(s))
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch\n got:  %#v\n want: %#v", got, s)
	}
}
