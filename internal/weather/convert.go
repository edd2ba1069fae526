package weather

// KelvinToFahrenheit converts a Kelvin temperature to Fahrenheit.
func KelvinToFahrenheit(k float64) float64 {
	return (k-273.15)*9/5 + 32
}

// MetersPerSecondToMPH converts a wind speed from m/s to miles per hour.
func MetersPerSecondToMPH(ms float64) float64 {
	return ms * 2.2369362920544
}

// ToFahrenheit normalizes a temperature reported in the given units.
func ToFahrenheit(temp float64, units Units) float64 {
	if units == UnitsStandard {
		return KelvinToFahrenheit(temp)
	}
	return temp
}

// ToMPH normalizes a wind speed reported in the given units.
func ToMPH(speed float64, units Units) float64 {
	if units == UnitsStandard {
		return MetersPerSecondToMPH(speed)
	}
	return speed
}
