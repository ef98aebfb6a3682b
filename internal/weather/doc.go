// Package weather fetches current conditions for a city from an upstream
// weather service.
//
// The Provider interface is what the gateway depends on. OpenWeatherClient
// is the production implementation; it talks to the OpenWeatherMap
// "current weather" endpoint and extracts the first numeric "temp" and
// "humidity" fields found anywhere in the response body.
//
// Values are truncated toward zero when converted to whole numbers, so
// 21.7 °C becomes 21 and -3.6 °C becomes -3.
package weather
