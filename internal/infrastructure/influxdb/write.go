package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementWeather is the measurement every served reply is written to.
const MeasurementWeather = "weather"

// WriteWeather records one served reply, tagged by city and mood.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Example:
//
//	client.WriteWeather("Brno", 21, 48, "Happy", time.Now())
func (c *Client) WriteWeather(city string, temperature, humidity int, mood string, at time.Time) {
	c.WritePoint(MeasurementWeather,
		map[string]string{
			"city": city,
			"mood": mood,
		},
		map[string]interface{}{
			"temperature": temperature,
			"humidity":    humidity,
		},
		at,
	)
}

// WritePoint writes a point with explicit tags, fields and timestamp.
// A zero timestamp means now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
