package field

// Physical unit conventions reproduced exactly per spec §4.2: speed m/s,
// angle radians, temperature degC, distance m, latitude/longitude decimal
// degrees, pressure Pa, voltage V, current A, power W, volume liters,
// rotation rpm, date days since 1970-01-01.

// KelvinFixedPointToCelsius converts a raw fixed-point Kelvin reading
// (resolution 0.01) to degrees Celsius: subtract 273.15 after scaling.
func KelvinFixedPointToCelsius(raw uint64) float64 {
	return float64(raw)*0.01 - 273.15
}

// LatLonResolution is the scale applied to raw latitude/longitude
// integers to produce decimal degrees.
const LatLonResolution = 1e-7

// DegreesFromRaw applies the latitude/longitude scale to a raw signed
// integer, yielding decimal degrees.
func DegreesFromRaw(raw int64) float64 {
	return float64(raw) * LatLonResolution
}
