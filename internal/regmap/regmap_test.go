package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"regctl/internal/protocol"
)

func TestBaseAccess(t *testing.T) {
	assert.Equal(t, AccessNone, BaseAccess(protocol.BaseReserved))
	assert.Equal(t, AccessReadOnly, BaseAccess(protocol.BaseMain))
	assert.Equal(t, AccessReadOnly, BaseAccess(protocol.BaseSensor))
	assert.Equal(t, AccessReadWrite, BaseAccess(protocol.BaseActuator))
	assert.Equal(t, AccessReadWrite, BaseAccess(protocol.BaseControl))
}

func TestKnownOffsetWriteMasks(t *testing.T) {
	known, mask := KnownOffset(protocol.BaseActuator, OffHeater)
	assert.True(t, known)
	assert.Equal(t, MaskHeaterWrite, mask)

	known, mask = KnownOffset(protocol.BaseActuator, OffDoors)
	assert.True(t, known)
	assert.Equal(t, MaskDoorsWrite, mask)

	known, _ = KnownOffset(protocol.BaseMain, OffConnectedDevice)
	assert.True(t, known)

	known, _ = KnownOffset(protocol.BaseActuator, 0x99)
	assert.False(t, known)
}

func TestDoorBit(t *testing.T) {
	bit, ok := DoorBit(1)
	assert.True(t, ok)
	assert.Equal(t, uint(0), bit)

	bit, ok = DoorBit(4)
	assert.True(t, ok)
	assert.Equal(t, uint(6), bit)

	_, ok = DoorBit(0)
	assert.False(t, ok)
	_, ok = DoorBit(5)
	assert.False(t, ok)
}
