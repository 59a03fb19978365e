package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	body := []byte("hello wire")
	framed, err := EncodeFrame(body)
	require.NoError(t, err)

	got, err := ReadFrame(bytes.NewReader(framed))
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReadFrameTruncatedLengthPrefix(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x01}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadFrameDeclaredLengthExceedsBuffer(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, 0x05}) // declares 5 bytes
	buf.Write([]byte{0x01, 0x02})             // only 2 follow

	_, err := ReadFrame(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadFrameRejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecode)
}
