package driver_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"regctl/internal/device"
	"regctl/internal/driver"
)

func startSimulator(t *testing.T) (*device.Memory, string) {
	t.Helper()
	mem := device.NewMemory(time.Unix(0, 3))
	srv := device.NewServer(mem, nil)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	t.Cleanup(srv.Stop)
	return mem, srv.Addr().String()
}

func dialSession(t *testing.T, addr string) *driver.Session {
	t.Helper()
	host, port, err := splitHostPort(addr)
	require.NoError(t, err)

	sess := driver.NewSession(nil)
	require.NoError(t, sess.Connect(host, port))
	t.Cleanup(func() { sess.Destroy() })
	return sess
}

func splitHostPort(addr string) (string, int, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, err
	}
	return h, port, nil
}

func TestConnectCompletesHandshake(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)
	require.True(t, sess.IsConnected())
}

func TestSetLEDGetLEDRoundTrip(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	require.NoError(t, sess.SetLED(0x2A))
	v, err := sess.GetLED()
	require.NoError(t, err)
	require.Equal(t, byte(0x2A), v)
}

func TestSetHeaterMasksReservedNibble(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	require.NoError(t, sess.SetHeater(0xFF))
	v, err := sess.GetHeater()
	require.NoError(t, err)
	require.Equal(t, byte(0x0F), v)
}

func TestSetDoorAndGetDoorState(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	require.NoError(t, sess.SetDoor(1, true))
	open, err := sess.GetDoorState(1)
	require.NoError(t, err)
	require.True(t, open)

	require.NoError(t, sess.SetDoor(1, false))
	open, err = sess.GetDoorState(1)
	require.NoError(t, err)
	require.False(t, open)
}

func TestSetDoorRejectsOutOfRangeID(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	err := sess.SetDoor(9, true)
	require.Error(t, err)
	require.Equal(t, driver.ErrInvalidParameter, driverErrorCode(t, err))
}

func TestWriteVerificationFailureSurfacesDeviceError(t *testing.T) {
	mem, addr := startSimulator(t)
	sess := dialSession(t, addr)

	mem.InjectBadEcho()
	err := sess.SetLED(0x10)
	require.Error(t, err)
	require.Equal(t, driver.ErrDeviceError, driverErrorCode(t, err))
}

func TestResetComponentClearsErrorAndActuator(t *testing.T) {
	mem, addr := startSimulator(t)
	sess := dialSession(t, addr)

	mem.SetErrorBit(0x01)
	require.NoError(t, sess.SetLED(0xFF))

	require.NoError(t, sess.ResetComponent(driver.ComponentLED))

	hasErr, err := sess.GetErrorState(driver.ComponentLED)
	require.NoError(t, err)
	require.False(t, hasErr)

	v, err := sess.GetLED()
	require.NoError(t, err)
	require.Equal(t, byte(0), v)
}

func TestSetPowerStateTogglesComponent(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	require.NoError(t, sess.SetPowerState(driver.ComponentTemperature, false))
	on, err := sess.GetPowerState(driver.ComponentTemperature)
	require.NoError(t, err)
	require.False(t, on)

	require.NoError(t, sess.SetPowerState(driver.ComponentTemperature, true))
	on, err = sess.GetPowerState(driver.ComponentTemperature)
	require.NoError(t, err)
	require.True(t, on)
}

func TestGetStatusReflectsConnectionAndPower(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	st, err := sess.GetStatus()
	require.NoError(t, err)
	require.True(t, st.Connected)
	require.True(t, st.SensorsPowered)
	require.True(t, st.ActuatorsPowered)
	require.False(t, st.HasErrors)
}

func TestDisconnectThenOperationFails(t *testing.T) {
	_, addr := startSimulator(t)
	sess := dialSession(t, addr)

	require.NoError(t, sess.Disconnect())
	_, err := sess.GetLED()
	require.Error(t, err)
	require.Equal(t, driver.ErrNotConnected, driverErrorCode(t, err))
}

func driverErrorCode(t *testing.T, err error) driver.ErrorCode {
	t.Helper()
	de, ok := err.(*driver.Error)
	require.True(t, ok, "expected *driver.Error, got %T", err)
	return de.Code
}
