// Package influxdb records execution metrics in InfluxDB v2.
//
// Each command run becomes one point in the launcher_execution measurement,
// tagged with topic and success, carrying duration_ms, exit_code and
// output_bytes fields. Writes are batched and non-blocking according to
// batch_size and flush_interval; async failures are logged and never reach
// the dispatcher.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteExecution(ctx, influxdb.ExecutionPoint{Topic: "sys/uptime", Success: true})
package influxdb
