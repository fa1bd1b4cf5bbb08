// Package config handles loading and validating Kobayashi client configuration.
//
// This package manages:
//   - Command-line flags shared by the publisher and subscriber binaries
//   - Loading an optional YAML configuration file
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling (per client role)
//
// Precedence, lowest to highest: defaults, YAML file, environment, flags that
// were set explicitly on the command line.
//
// Security Considerations:
//   - Certificate and key paths are configuration; key material never is
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	flags := config.BindFlags(cmd.Flags(), config.RolePublisher)
//	// ... cobra parses the command line ...
//	cfg, err := flags.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Broker.Address())
package config
