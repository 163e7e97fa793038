// Package config handles configuration loading for the back-office gateway.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BACKOFFICE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/backoffice/config.yaml
//  3. ~/.config/backoffice/config.yaml
//
// Files ending in .toml are read as TOML; anything else is YAML.
// BACKOFFICE_DB_PATH, when set, overrides database.path.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${BACKOFFICE_JWT_SECRET}"
//	  access_code: "${BACKOFFICE_ACCESS_CODE}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Durations use Go's time.ParseDuration syntax plus a day suffix:
//
//	auth:
//	  token_ttl: "7d"            # default
//	  failed_login_delay: "1s"   # default
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"
//
//	database:
//	  path: "/var/lib/backoffice/backoffice.db"
//
//	auth:
//	  jwt_secret: "${BACKOFFICE_JWT_SECRET}"
//	  access_code: "${BACKOFFICE_ACCESS_CODE}"
//	  access_code_hash: ""       # bcrypt; takes precedence over access_code
//	  default_admin:
//	    username: "admin"
//	    email: "admin@localhost"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load requires server.http_addr and database.path. A missing jwt_secret or
// access code is reported by Warnings instead: the server still starts and
// affected requests fail with a server misconfiguration error.
package config
