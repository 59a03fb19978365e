package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginResponseRecord(correlationID, rpCode string) *Record {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateLoginResponse).
		PutString(UserMsgField, correlationID)
	if rpCode != "" {
		rec.PutString(RpCodeField, rpCode)
	}
	return rec
}

func TestDecodePreservesCorrelationID(t *testing.T) {
	env, err := Decode(loginResponseRecord("corr-42", "0").Marshal())
	require.NoError(t, err)
	assert.Equal(t, "corr-42", env.CorrelationID)
	assert.NoError(t, env.Err)
	assert.False(t, env.IsUpdate)
}

func TestDecodeSuccessRpCode(t *testing.T) {
	env, err := Decode(loginResponseRecord("corr-1", "0").Marshal())
	require.NoError(t, err)
	assert.NoError(t, env.Err)
}

func TestDecodeFailureRpCode(t *testing.T) {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateLoginResponse).
		PutString(UserMsgField, "corr-2").
		PutString(RpCodeField, "5").
		PutString(RpCodeField, "Invalid password")

	env, err := Decode(rec.Marshal())
	require.NoError(t, err)
	require.Error(t, env.Err)

	var rpErr *RpError
	require.True(t, errors.As(env.Err, &rpErr))
	assert.Equal(t, "5", rpErr.Code)
	assert.Equal(t, "Invalid password", rpErr.Text)
}

func TestDecodeFailureRpCodeWithoutTextDefaultsToUnknownError(t *testing.T) {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateLoginResponse).
		PutString(UserMsgField, "corr-2b").
		PutString(RpCodeField, "5")

	env, err := Decode(rec.Marshal())
	require.NoError(t, err)
	require.Error(t, env.Err)

	var rpErr *RpError
	require.True(t, errors.As(env.Err, &rpErr))
	assert.Equal(t, "5", rpErr.Code)
	assert.Equal(t, "Unknown Error", rpErr.Text)
}

func TestDecodeHasMoreDerivation(t *testing.T) {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateShowOrdersResponse).
		PutString(UserMsgField, "corr-3").
		PutString(RqHandlerRpCodeField, "0")

	env, err := Decode(rec.Marshal())
	require.NoError(t, err)
	assert.True(t, env.HasMore)

	rec2 := NewRecord().
		PutVarint(TemplateIDField, TemplateShowOrdersResponse).
		PutString(UserMsgField, "corr-3").
		PutString(RqHandlerRpCodeField, "1")
	env2, err := Decode(rec2.Marshal())
	require.NoError(t, err)
	assert.False(t, env2.HasMore)
}

func TestDecodeUnsolicitedUpdateHasNoCorrelationID(t *testing.T) {
	rec := NewRecord().PutVarint(TemplateIDField, TemplateForcedLogout)
	env, err := Decode(rec.Marshal())
	require.NoError(t, err)
	assert.True(t, env.IsUpdate)
	assert.Empty(t, env.CorrelationID)
}

func TestDecodeUnknownTemplateIDStillReturnsEnvelope(t *testing.T) {
	rec := NewRecord().PutVarint(TemplateIDField, 99999)
	env, err := Decode(rec.Marshal())
	require.Error(t, err)

	var unknown *UnknownTemplateError
	require.True(t, errors.As(err, &unknown))
	assert.EqualValues(t, 99999, unknown.TemplateID)
	assert.ErrorIs(t, err, ErrDecode)

	require.NotNil(t, env)
	assert.EqualValues(t, 99999, env.TemplateID)
}

func TestDecodeMissingTemplateIDIsDecodeError(t *testing.T) {
	rec := NewRecord().PutString(UserMsgField, "corr")
	_, err := Decode(rec.Marshal())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectCarriesText(t *testing.T) {
	rec := NewRecord().
		PutVarint(TemplateIDField, TemplateReject).
		PutString(UserMsgField, "malformed request")

	env, err := Decode(rec.Marshal())
	require.NoError(t, err)
	require.Error(t, env.Err)

	var rpErr *RpError
	require.True(t, errors.As(env.Err, &rpErr))
	assert.Equal(t, "malformed request", rpErr.Text)
}
