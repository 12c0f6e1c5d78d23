// Package config handles loading and validating mqtt-launcher configuration.
//
// This package manages:
//   - Loading configuration from a declarative YAML file
//   - Decoding the topic list (topic -> parameter -> command)
//   - Overriding broker settings with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The file layout keeps the flat keys operators already know
// (logfile, loglevel, topiclist, mqtt_broker, ...). Section views such as
// MQTT() and Logging() translate them into the structures consumed by the
// infrastructure packages.
//
// Security Considerations:
//   - The configuration is parsed, never executed
//   - mqtt_password can be supplied via MQTTLAUNCHER_PASSWORD instead of the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    os.Exit(2)
//	}
//	fmt.Println(cfg.Broker)
package config
