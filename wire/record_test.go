package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTripVarintStringFloat64(t *testing.T) {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateLoginRequest).
		PutString(UserMsgField, "corr-1").
		PutFloat64(5000, 3.25)

	b := rec.Marshal()

	parsed, err := ParseRecord(b)
	require.NoError(t, err)

	id, ok := parsed.Int64(TemplateIDField)
	require.True(t, ok)
	assert.EqualValues(t, TemplateLoginRequest, id)

	msg, ok := parsed.String(UserMsgField)
	require.True(t, ok)
	assert.Equal(t, "corr-1", msg)

	f, ok := parsed.Float64(5000)
	require.True(t, ok)
	assert.InDelta(t, 3.25, f, 1e-9)
}

func TestRecordRepeatedStringsPreserveOrder(t *testing.T) {
	rec := NewRecord().
		PutString(RpCodeField, "5").
		PutString(RpCodeField, "Invalid password")

	b := rec.Marshal()
	parsed, err := ParseRecord(b)
	require.NoError(t, err)

	assert.Equal(t, []string{"5", "Invalid password"}, parsed.Strings(RpCodeField))
}

func TestRecordFixed64DoesNotCollideWithVarintOnReMarshal(t *testing.T) {
	rec := NewRecord().PutFloat64(7000, 2.5)
	b1 := rec.Marshal()

	parsed, err := ParseRecord(b1)
	require.NoError(t, err)
	b2 := parsed.Marshal()

	assert.Equal(t, b1, b2)

	_, isVarint := parsed.Int64(7000)
	assert.False(t, isVarint, "fixed64 field must not also satisfy Int64 lookup")
}

func TestParseRecordRejectsTruncatedVarint(t *testing.T) {
	_, err := ParseRecord([]byte{0x08}) // tag with no following varint byte
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}
