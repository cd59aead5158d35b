package device

import "regctl/internal/regmap"

// errorRaiseProbability is the approximate per-tick chance that a
// powered sensor raises its error_state bit, per spec.md §4.2. Exact
// distribution is explicitly not part of the observable contract
// (spec.md §9 Open Question 3); only the power-gating (P8) and this
// envelope are testable.
const errorRaiseProbability = 0.01

// walkStep bounds how far a sensor's reading can move in one tick. The
// heater and fan actuator values bias the walk, same idea as the
// teacher's mining loop nudging ASIC state on every poll.
const walkStep = 3

// tickSensors advances the sensor simulation once. Must be called with
// mu held. A sensor only updates while its power_state bit is set
// (P8); reads of an unpowered sensor are therefore stable across any
// number of ticks.
func (m *Memory) tickSensors() {
	if m.powerState&regmap.MaskTempSensor != 0 {
		// heater holds only 4 bits; scale 0x0..0xF to 0..255 so it reaches
		// the same bias thresholds as the full-byte fan value.
		m.sensorAReading = m.walk(m.sensorAReading, int(m.heater)*17)
		if m.rng.Float64() < errorRaiseProbability {
			m.errorState |= regmap.MaskTempSensor
		}
	}
	if m.powerState&regmap.MaskHumidSensor != 0 {
		m.sensorBReading = m.walk(m.sensorBReading, int(m.fan))
		if m.rng.Float64() < errorRaiseProbability {
			m.errorState |= regmap.MaskHumidSensor
		}
	}
}

// walk takes one bounded random step from current, biased by a related
// actuator's current value so heater/fan settings visibly influence the
// readings without controlling them outright.
func (m *Memory) walk(current byte, bias int) byte {
	delta := m.rng.Intn(2*walkStep+1) - walkStep
	if bias > 128 {
		delta++
	} else if bias < 64 {
		delta--
	}
	next := int(current) + delta
	if next < 0 {
		next = 0
	}
	if next > 255 {
		next = 255
	}
	return byte(next)
}
