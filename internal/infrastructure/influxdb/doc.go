// Package influxdb records admission telemetry in InfluxDB.
//
// Every rejection the request pipeline issues (which gate, which reason,
// which status) and every rate-limit decision becomes a point, so operators
// can chart credential stuffing or tenant-boundary probing over weeks rather
// than the scrape window Prometheus keeps.
//
// Writes are non-blocking and batched. Async write failures are delivered
// to the callback set with SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAdmissionDecision("csrf", "mismatch", 403)
package influxdb
