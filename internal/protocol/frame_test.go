package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundTrip(t *testing.T) {
	cases := []Message{
		MakeRead(BaseMain, 0x02),
		MakeWrite(BaseActuator, 0x10, 0xFF),
		MakeWrite(BaseControl, 0xFB, 0x11),
	}
	for _, m := range cases {
		frame := Format(m)
		assert.Len(t, frame, FrameLen)

		got, err := Parse(frame)
		require.NoError(t, err)
		assert.Equal(t, m.Base, got.Base)
		assert.Equal(t, m.Offset, got.Offset)
		assert.Equal(t, m.RW, got.RW)
		assert.Equal(t, m.Data, got.Data)
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "1FFFFF", Format(MakeError(ErrForbidden)))
	assert.Equal(t, "2FFFFF", Format(MakeError(ErrInvalid)))
	assert.Equal(t, "3FFFFF", Format(MakeError(ErrGeneral)))
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse("12345")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("1234567")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("1G2345")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRecognizeError(t *testing.T) {
	code, ok := RecognizeError("1FFFFF")
	require.True(t, ok)
	assert.Equal(t, ErrForbidden, code)

	code, ok = RecognizeError("2FFFFF")
	require.True(t, ok)
	assert.Equal(t, ErrInvalid, code)

	_, ok = RecognizeError("100FFF")
	assert.False(t, ok)

	_, ok = RecognizeError("4FFFFF")
	assert.False(t, ok)
}

func TestIsError(t *testing.T) {
	assert.True(t, MakeError(ErrForbidden).IsError())
	assert.False(t, MakeRead(BaseMain, 0).IsError())
}
