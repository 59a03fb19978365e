package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Record is a generic, ordered protobuf record: a sequence of (field number,
// value) pairs. The real R|Protocol record types are generated protobuf
// messages (out of scope for this client per spec.md §1); Record lets the
// codec and the request builders speak the wire format directly against
// protowire's low-level varint/length-delimited primitives instead of
// depending on those generated types.
type Record struct {
	fields []field
}

type fieldKind int

const (
	kindVarint fieldKind = iota
	kindString
	kindFixed64
)

type field struct {
	num  protowire.Number
	kind fieldKind
	i    int64
	s    string
}

// NewRecord returns an empty record ready for Put* calls in field order.
func NewRecord() *Record { return &Record{} }

// PutVarint appends an int64 field. Repeated calls with the same field
// number append repeated entries, preserving call order.
func (r *Record) PutVarint(num protowire.Number, v int64) *Record {
	r.fields = append(r.fields, field{num: num, kind: kindVarint, i: v})
	return r
}

// PutString appends a string (length-delimited) field.
func (r *Record) PutString(num protowire.Number, v string) *Record {
	r.fields = append(r.fields, field{num: num, kind: kindString, s: v})
	return r
}

// Marshal serializes the record to protobuf wire bytes in field-append order.
func (r *Record) Marshal() []byte {
	var buf []byte
	for _, f := range r.fields {
		switch f.kind {
		case kindVarint:
			buf = protowire.AppendTag(buf, f.num, protowire.VarintType)
			buf = protowire.AppendVarint(buf, uint64(f.i))
		case kindString:
			buf = protowire.AppendTag(buf, f.num, protowire.BytesType)
			buf = protowire.AppendString(buf, f.s)
		case kindFixed64:
			buf = protowire.AppendTag(buf, f.num, protowire.Fixed64Type)
			buf = protowire.AppendFixed64(buf, uint64(f.i))
		}
	}
	return buf
}

// ParseRecord reads every field out of raw protobuf bytes into a Record,
// tolerating fields of either wire type per field number (repeated fields
// accumulate in encounter order). Unknown wire types are skipped, not
// rejected, matching typical protobuf forward-compatibility behavior.
func ParseRecord(b []byte) (*Record, error) {
	r := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: %w: bad tag: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: %w: bad varint: %v", ErrDecode, protowire.ParseError(n))
			}
			r.fields = append(r.fields, field{num: num, kind: kindVarint, i: int64(v)})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: %w: bad length-delimited field: %v", ErrDecode, protowire.ParseError(n))
			}
			r.fields = append(r.fields, field{num: num, kind: kindString, s: string(v)})
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: %w: bad fixed32: %v", ErrDecode, protowire.ParseError(n))
			}
			r.fields = append(r.fields, field{num: num, kind: kindVarint, i: int64(v)})
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: %w: bad fixed64: %v", ErrDecode, protowire.ParseError(n))
			}
			r.fields = append(r.fields, field{num: num, kind: kindFixed64, i: int64(v)})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: %w: bad field: %v", ErrDecode, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}

// Int64 returns the first varint value stored under num, or ok=false.
func (r *Record) Int64(num protowire.Number) (int64, bool) {
	for _, f := range r.fields {
		if f.num == num && f.kind == kindVarint {
			return f.i, true
		}
	}
	return 0, false
}

// String returns the first string value stored under num, or ok=false.
func (r *Record) String(num protowire.Number) (string, bool) {
	for _, f := range r.fields {
		if f.num == num && f.kind == kindString {
			return f.s, true
		}
	}
	return "", false
}

// Float64 interprets the first fixed64 value under num as an IEEE double.
// The R|Protocol encodes real-valued fields (e.g. heartbeat_interval,
// prices) as fixed64; ParseRecord keeps fixed64 fields as their raw bit
// pattern in their own fixed64 entries, so this just reinterprets the bits.
// Varint entries under num are not considered.
func (r *Record) Float64(num protowire.Number) (float64, bool) {
	for _, f := range r.fields {
		if f.num == num && f.kind == kindFixed64 {
			return math.Float64frombits(uint64(f.i)), true
		}
	}
	return 0, false
}

// PutFloat64 appends a fixed64-encoded double field.
func (r *Record) PutFloat64(num protowire.Number, v float64) *Record {
	r.fields = append(r.fields, field{num: num, kind: kindFixed64, i: int64(math.Float64bits(v))})
	return r
}

// Strings returns every string value stored under num, in encounter order —
// used for repeated string fields such as user_msg, rp_code, and
// rq_handler_rp_code.
func (r *Record) Strings(num protowire.Number) []string {
	var out []string
	for _, f := range r.fields {
		if f.num == num && f.kind == kindString {
			out = append(out, f.s)
		}
	}
	return out
}
