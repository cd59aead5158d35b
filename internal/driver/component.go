package driver

import "regctl/internal/regmap"

// Component identifies one of the six logical subsystems spec.md's
// glossary names: temperature, humidity, LED, fan, heater, doors.
type Component int

const (
	ComponentTemperature Component = iota
	ComponentHumidity
	ComponentLED
	ComponentFan
	ComponentHeater
	ComponentDoors
)

func (c Component) String() string {
	switch c {
	case ComponentTemperature:
		return "temperature"
	case ComponentHumidity:
		return "humidity"
	case ComponentLED:
		return "led"
	case ComponentFan:
		return "fan"
	case ComponentHeater:
		return "heater"
	case ComponentDoors:
		return "doors"
	default:
		return "unknown"
	}
}

// isSensor reports whether c is powered/reset through
// power_sensors/reset_sensors (true) or power_actuators/reset_actuators
// (false).
func (c Component) isSensor() bool {
	return c == ComponentTemperature || c == ComponentHumidity
}

// bit returns c's single-bit mask within connected_device/power_state/
// error_state and within its CONTROL power/reset register.
func (c Component) bit() (byte, *Error) {
	switch c {
	case ComponentTemperature:
		return regmap.MaskTempSensor, nil
	case ComponentHumidity:
		return regmap.MaskHumidSensor, nil
	case ComponentLED:
		return regmap.MaskLED, nil
	case ComponentFan:
		return regmap.MaskFan, nil
	case ComponentHeater:
		return regmap.MaskHeater, nil
	case ComponentDoors:
		return regmap.MaskDoors, nil
	default:
		return 0, newErr(ErrInvalidParameter, "unknown component %d", int(c))
	}
}
