// Package influxdb writes the gateway's served weather readings to
// InfluxDB v2.
//
// Each reply becomes one point in the "weather" measurement, tagged with
// city and mood and carrying temperature and humidity fields. Telemetry is
// optional: Connect returns ErrDisabled when influxdb.enabled is false and
// the gateway runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteWeather("Brno", 21, 48, "Happy", time.Now())
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
