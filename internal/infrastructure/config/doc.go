// Package config handles loading and validating Moodcast configuration.
//
// The gateway and the station read the same file; each uses the sections
// it needs and ignores the rest.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional dotenv file (MOODCAST_ENV_FILE, default .env)
//   - Overriding with MOODCAST_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The weather API key and broker password should come from the
//     environment or the dotenv file, not the YAML
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.RequestTopic)
package config
