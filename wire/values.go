package wire

import "github.com/grafeodb/gwp/gqltypes"

// ValueKind mirrors gqltypes.Kind as a wire-stable discriminant; kept as a
// distinct type (rather than reusing gqltypes.Kind directly) so the internal
// value model can evolve without changing wire compatibility.
type ValueKind string

const (
	VNull            ValueKind = "NULL"
	VBoolean         ValueKind = "BOOLEAN"
	VInteger         ValueKind = "INTEGER"
	VUnsignedInteger ValueKind = "UNSIGNED_INTEGER"
	VFloat           ValueKind = "FLOAT"
	VString          ValueKind = "STRING"
	VBytes           ValueKind = "BYTES"
	VDate            ValueKind = "DATE"
	VLocalTime       ValueKind = "LOCAL_TIME"
	VZonedTime       ValueKind = "ZONED_TIME"
	VLocalDateTime   ValueKind = "LOCAL_DATE_TIME"
	VZonedDateTime   ValueKind = "ZONED_DATE_TIME"
	VDuration        ValueKind = "DURATION"
	VList            ValueKind = "LIST"
	VRecord          ValueKind = "RECORD"
	VNode            ValueKind = "NODE"
	VEdge            ValueKind = "EDGE"
	VPath            ValueKind = "PATH"
	VDecimal         ValueKind = "DECIMAL"
	VBigInteger      ValueKind = "BIG_INTEGER"
	VBigFloat        ValueKind = "BIG_FLOAT"
)

// Value is the wire representation of gqltypes.Value: an explicit oneof
// discriminant (Kind) plus the payload fields for every variant. An absent
// oneof (the zero Value, Kind == "") maps to Null, per the null-propagation
// rule in the value model.
type Value struct {
	Kind ValueKind

	Boolean         bool
	Integer         int64
	UnsignedInteger uint64
	Float           float64
	String          string
	Bytes           []byte

	Year, Month, Day int

	TimeNanos     int64
	OffsetMinutes int32

	DurationMonths int64
	DurationNanos  int64

	List   []*Value
	Record []WireField

	NodeID         []byte
	Labels         []string
	Properties     map[string]*Value
	EdgeSource     []byte
	EdgeTarget     []byte
	EdgeDirected   bool
	PathNodes      []*Value
	PathEdges      []*Value

	DecimalUnscaled []byte
	DecimalScale    int32

	BigIntBytes  []byte
	BigIntSigned bool

	BigFloatBytes []byte
	BigFloatWidth int32
}

// WireField is the wire form of gqltypes.Field.
type WireField struct {
	Name  string
	Value *Value
}

// ToWire converts an internal Value to its wire representation. ToWire is
// total: every Kind has a corresponding wire encoding.
func ToWire(v gqltypes.Value) *Value {
	switch v.Kind {
	case gqltypes.KindNull:
		return &Value{Kind: VNull}
	case gqltypes.KindBoolean:
		return &Value{Kind: VBoolean, Boolean: v.Boolean}
	case gqltypes.KindInteger:
		return &Value{Kind: VInteger, Integer: v.Integer}
	case gqltypes.KindUnsignedInteger:
		return &Value{Kind: VUnsignedInteger, UnsignedInteger: v.UnsignedInteger}
	case gqltypes.KindFloat:
		return &Value{Kind: VFloat, Float: v.Float}
	case gqltypes.KindString:
		return &Value{Kind: VString, String: v.String}
	case gqltypes.KindBytes:
		return &Value{Kind: VBytes, Bytes: v.Bytes}
	case gqltypes.KindDate:
		return &Value{Kind: VDate, Year: v.Date.Year, Month: v.Date.Month, Day: v.Date.Day}
	case gqltypes.KindLocalTime:
		return &Value{Kind: VLocalTime, TimeNanos: v.LocalTime.Nanoseconds}
	case gqltypes.KindZonedTime:
		return &Value{Kind: VZonedTime, TimeNanos: v.ZonedTime.Nanoseconds, OffsetMinutes: v.ZonedTime.OffsetMinutes}
	case gqltypes.KindLocalDateTime:
		return &Value{
			Kind: VLocalDateTime,
			Year: v.LocalDateTime.Date.Year, Month: v.LocalDateTime.Date.Month, Day: v.LocalDateTime.Date.Day,
			TimeNanos: v.LocalDateTime.Time.Nanoseconds,
		}
	case gqltypes.KindZonedDateTime:
		return &Value{
			Kind: VZonedDateTime,
			Year: v.ZonedDateTime.Date.Year, Month: v.ZonedDateTime.Date.Month, Day: v.ZonedDateTime.Date.Day,
			TimeNanos: v.ZonedDateTime.Time.Nanoseconds, OffsetMinutes: v.ZonedDateTime.Time.OffsetMinutes,
		}
	case gqltypes.KindDuration:
		return &Value{Kind: VDuration, DurationMonths: v.Duration.Months, DurationNanos: v.Duration.Nanoseconds}
	case gqltypes.KindList:
		out := make([]*Value, len(v.List))
		for i, e := range v.List {
			out[i] = ToWire(e)
		}
		return &Value{Kind: VList, List: out}
	case gqltypes.KindRecord:
		out := make([]WireField, len(v.Record))
		for i, f := range v.Record {
			out[i] = WireField{Name: f.Name, Value: ToWire(f.Value)}
		}
		return &Value{Kind: VRecord, Record: out}
	case gqltypes.KindNode:
		return &Value{Kind: VNode, NodeID: v.Node.ID, Labels: v.Node.Labels, Properties: propsToWire(v.Node.Properties)}
	case gqltypes.KindEdge:
		return &Value{
			Kind: VEdge, NodeID: v.Edge.ID, Labels: v.Edge.Labels,
			EdgeSource: v.Edge.Source, EdgeTarget: v.Edge.Target, EdgeDirected: v.Edge.Directed,
			Properties: propsToWire(v.Edge.Properties),
		}
	case gqltypes.KindPath:
		nodes := make([]*Value, len(v.Path.Nodes))
		for i, n := range v.Path.Nodes {
			nodes[i] = ToWire(gqltypes.NodeOf(n))
		}
		edges := make([]*Value, len(v.Path.Edges))
		for i, e := range v.Path.Edges {
			edges[i] = ToWire(gqltypes.EdgeOf(e))
		}
		return &Value{Kind: VPath, PathNodes: nodes, PathEdges: edges}
	case gqltypes.KindDecimal:
		return &Value{Kind: VDecimal, DecimalUnscaled: v.Decimal.Unscaled, DecimalScale: v.Decimal.Scale}
	case gqltypes.KindBigInteger:
		return &Value{Kind: VBigInteger, BigIntBytes: v.BigInteger.Bytes, BigIntSigned: v.BigInteger.Signed}
	case gqltypes.KindBigFloat:
		return &Value{Kind: VBigFloat, BigFloatBytes: v.BigFloat.Bytes, BigFloatWidth: v.BigFloat.Width}
	default:
		return &Value{Kind: VNull}
	}
}

// FromWire converts a wire Value back to the internal representation. A nil
// or absent wire Value (including an unset oneof) maps to Null, per the
// null-propagation rule.
func FromWire(w *Value) gqltypes.Value {
	if w == nil || w.Kind == "" || w.Kind == VNull {
		return gqltypes.Null
	}
	switch w.Kind {
	case VBoolean:
		return gqltypes.Bool(w.Boolean)
	case VInteger:
		return gqltypes.Int(w.Integer)
	case VUnsignedInteger:
		return gqltypes.Uint(w.UnsignedInteger)
	case VFloat:
		return gqltypes.Float64(w.Float)
	case VString:
		return gqltypes.Str(w.String)
	case VBytes:
		return gqltypes.Raw(w.Bytes)
	case VDate:
		return gqltypes.Value{Kind: gqltypes.KindDate, Date: gqltypes.Date{Year: w.Year, Month: w.Month, Day: w.Day}}
	case VLocalTime:
		return gqltypes.Value{Kind: gqltypes.KindLocalTime, LocalTime: gqltypes.LocalTime{Nanoseconds: w.TimeNanos}}
	case VZonedTime:
		return gqltypes.Value{Kind: gqltypes.KindZonedTime, ZonedTime: gqltypes.ZonedTime{Nanoseconds: w.TimeNanos, OffsetMinutes: w.OffsetMinutes}}
	case VLocalDateTime:
		return gqltypes.Value{Kind: gqltypes.KindLocalDateTime, LocalDateTime: gqltypes.LocalDateTime{
			Date: gqltypes.Date{Year: w.Year, Month: w.Month, Day: w.Day},
			Time: gqltypes.LocalTime{Nanoseconds: w.TimeNanos},
		}}
	case VZonedDateTime:
		return gqltypes.Value{Kind: gqltypes.KindZonedDateTime, ZonedDateTime: gqltypes.ZonedDateTime{
			Date: gqltypes.Date{Year: w.Year, Month: w.Month, Day: w.Day},
			Time: gqltypes.ZonedTime{Nanoseconds: w.TimeNanos, OffsetMinutes: w.OffsetMinutes},
		}}
	case VDuration:
		return gqltypes.Value{Kind: gqltypes.KindDuration, Duration: gqltypes.Duration{Months: w.DurationMonths, Nanoseconds: w.DurationNanos}}
	case VList:
		out := make([]gqltypes.Value, len(w.List))
		for i, e := range w.List {
			out[i] = FromWire(e)
		}
		return gqltypes.List(out)
	case VRecord:
		out := make([]gqltypes.Field, len(w.Record))
		for i, f := range w.Record {
			out[i] = gqltypes.Field{Name: f.Name, Value: FromWire(f.Value)}
		}
		return gqltypes.RecordOf(out)
	case VNode:
		return gqltypes.NodeOf(gqltypes.Node{ID: w.NodeID, Labels: w.Labels, Properties: propsFromWire(w.Properties)})
	case VEdge:
		return gqltypes.EdgeOf(gqltypes.Edge{
			ID: w.NodeID, Labels: w.Labels, Source: w.EdgeSource, Target: w.EdgeTarget,
			Directed: w.EdgeDirected, Properties: propsFromWire(w.Properties),
		})
	case VPath:
		nodes := make([]gqltypes.Node, len(w.PathNodes))
		for i, n := range w.PathNodes {
			nodes[i] = FromWire(n).Node
		}
		edges := make([]gqltypes.Edge, len(w.PathEdges))
		for i, e := range w.PathEdges {
			edges[i] = FromWire(e).Edge
		}
		return gqltypes.PathOf(gqltypes.Path{Nodes: nodes, Edges: edges})
	case VDecimal:
		return gqltypes.Value{Kind: gqltypes.KindDecimal, Decimal: gqltypes.Decimal{Unscaled: w.DecimalUnscaled, Scale: w.DecimalScale}}
	case VBigInteger:
		return gqltypes.Value{Kind: gqltypes.KindBigInteger, BigInteger: gqltypes.BigInteger{Bytes: w.BigIntBytes, Signed: w.BigIntSigned}}
	case VBigFloat:
		return gqltypes.Value{Kind: gqltypes.KindBigFloat, BigFloat: gqltypes.BigFloat{Bytes: w.BigFloatBytes, Width: w.BigFloatWidth}}
	default:
		return gqltypes.Null
	}
}

func propsToWire(m map[string]gqltypes.Value) map[string]*Value {
	if m == nil {
		return nil
	}
	out := make(map[string]*Value, len(m))
	for k, v := range m {
		out[k] = ToWire(v)
	}
	return out
}

func propsFromWire(m map[string]*Value) map[string]gqltypes.Value {
	if m == nil {
		return nil
	}
	out := make(map[string]gqltypes.Value, len(m))
	for k, v := range m {
		out[k] = FromWire(v)
	}
	return out
}
