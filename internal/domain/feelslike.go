package domain

import (
	"math"
	"time"
)

// FeelsLike returns the apparent temperature in °C.
//
// May through September uses the KMA summer formula based on Stull's
// wet-bulb temperature. The rest of the year applies wind chill when the air
// is at or below 10 °C and the wind is at least 1.3 m/s; otherwise the air
// temperature is returned unchanged.
func FeelsLike(temp, humidity, windKmh float64, month time.Month) float64 {
	if month >= time.May && month <= time.September {
		return summerFeelsLike(temp, humidity)
	}
	windMs := windKmh * 1000 / 3600
	if temp <= 10 && windMs >= 1.3 {
		return windChill(temp, windKmh)
	}
	return temp
}

func summerFeelsLike(ta, rh float64) float64 {
	tw := wetBulb(ta, rh)
	return -0.2442 + 0.55399*tw + 0.45535*ta - 0.0022*tw*tw + 0.00278*tw*ta + 3.0
}

func wetBulb(ta, rh float64) float64 {
	return ta*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(ta+rh) -
		math.Atan(rh-1.67633) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035
}

// windChill expects wind speed in km/h.
func windChill(ta, v float64) float64 {
	vp := math.Pow(v, 0.16)
	return 13.12 + 0.6215*ta - 11.37*vp + 0.3965*vp*ta
}
