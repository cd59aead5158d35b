package driver

import (
	"regctl/internal/protocol"
	"regctl/internal/regmap"
)

// checkAccess mirrors the device's access rules locally (spec.md §4.4:
// "the driver applies a static access-permission check that mirrors
// the device's rules"), so a caller gets a precise invalid_parameter
// before ever reaching the wire for requests the device would reject
// anyway.
func checkAccess(base, offset byte, write bool) *Error {
	if base == protocol.BaseReserved {
		return newErr(ErrInvalidParameter, "base 0 is reserved")
	}
	access := regmap.BaseAccess(base)
	if access == regmap.AccessNone {
		return newErr(ErrInvalidParameter, "unknown base %#x", base)
	}
	if write && access == regmap.AccessReadOnly {
		return newErr(ErrInvalidParameter, "base %#x is read-only", base)
	}
	known, _ := regmap.KnownOffset(base, offset)
	if !known {
		return newErr(ErrInvalidParameter, "unknown offset %#x in base %#x", offset, base)
	}
	return nil
}

// readRegister performs one read: permission check, exchange, parse,
// and a check that the response is not an error frame.
func (s *Session) readRegister(base, offset byte) (byte, *Error) {
	if e := checkAccess(base, offset, false); e != nil {
		return 0, s.setErr(e)
	}

	reqFrame := protocol.Format(protocol.MakeRead(base, offset))
	respFrame, eerr := s.exchange(reqFrame)
	if eerr != nil {
		return 0, eerr
	}

	if code, ok := protocol.RecognizeError(respFrame); ok {
		return 0, s.setErr(newErr(ErrDeviceError, "device returned error %#x for read %#x/%#x", code, base, offset))
	}
	resp, err := protocol.Parse(respFrame)
	if err != nil {
		return 0, s.setErr(wrapErr(ErrProtocolError, err, "parsing read response %q", respFrame))
	}
	return resp.Data, nil
}

// writeRegister performs one write: permission check, exchange, parse,
// error check, and write verification (the response must echo base,
// offset, rw=1 and data==value, per spec.md §4.4/P5).
func (s *Session) writeRegister(base, offset, value byte) *Error {
	if e := checkAccess(base, offset, true); e != nil {
		return s.setErr(e)
	}

	reqFrame := protocol.Format(protocol.MakeWrite(base, offset, value))
	respFrame, eerr := s.exchange(reqFrame)
	if eerr != nil {
		return eerr
	}

	if code, ok := protocol.RecognizeError(respFrame); ok {
		return s.setErr(newErr(ErrDeviceError, "device returned error %#x for write %#x/%#x", code, base, offset))
	}
	resp, err := protocol.Parse(respFrame)
	if err != nil {
		return s.setErr(wrapErr(ErrProtocolError, err, "parsing write response %q", respFrame))
	}
	if resp.Base != base || resp.Offset != offset || resp.RW != protocol.RWWrite || resp.Data != value {
		return s.setErr(newErr(ErrDeviceError, "write verification failed for %#x/%#x: echoed %02x%02x%x%02x", base, offset, resp.Base, resp.Offset, resp.RW, resp.Data))
	}
	return nil
}
