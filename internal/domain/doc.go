// Package domain models the weather snapshots, alarms and notifications the
// service works with, plus the pure functions that derive display values.
//
// # Data Source
//
// Weather comes from a KMA (Korea Meteorological Administration) backed HTTP
// API that is addressed by grid cell rather than latitude/longitude. Callers
// convert coordinates with [ToGrid] before querying. Three endpoints are used:
//
//	/api/weather/current   current observation for the cell
//	/api/weather/forecast  short-range hourly forecast
//	/api/weather/week      mid-range daily forecast (am/pm sky)
//
// Field names in the current-observation payload are Korean labels with units
// in parentheses, e.g. "기온(°C)" for air temperature. See [CurrentObservation].
//
// # KMA Conventions
//
// Sky condition ("하늘상태", sky_am, sky_pm) is free text:
//
//	맑음      clear
//	구름조금  partly cloudy
//	구름많음  mostly cloudy
//	흐림      overcast
//
// Precipitation type appears as text on the current observation ("없음",
// "비", "눈", "소나기") and as a numeric PTY code on hourly items:
//
//	0 none | 1 rain | 2 rain/snow | 3 snow | 4 shower
//	5 drizzle | 6 drizzle/snow flurry | 7 snow flurry
//
// Hourly times are HHMM strings ("0900"); weekly dates are yyyyMMdd.
//
// # Display Values
//
// A [WeatherState] holds display-ready strings ("18°", "65%", "0.0 mm") so it
// can be cached and served without recomputation. The single cached row is a
// [WeatherCache] with the forecasts embedded as JSON text.
package domain
