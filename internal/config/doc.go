// Package config handles configuration loading for ecg-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden by a fixed set of environment variables. Every
// field has a default, so the server also runs with no file at all.
//
// # Configuration File
//
// The path comes from the --config flag or the ECG_CONFIG environment
// variable. Files ending in .toml are parsed as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  secret_key: "${SECRET_KEY}"
//
// # Environment Overrides
//
// Applied after the file:
//
//   - DATABASE_URL: database.path (a sqlite:/// prefix is stripped)
//   - SECRET_KEY: auth.secret_key
//   - ALGORITHM: auth.algorithm
//   - ADMIN_USERNAME, ADMIN_PASSWORD: bootstrap admin credentials
//   - ACCESS_TOKEN_EXPIRE_MINUTES: auth.token_ttl in whole minutes
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8000"
//	  grpc_addr: ""             # optional grpc.health.v1 service
//
//	database:
//	  driver: "sqlite"          # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "./ecg.db"          # ":memory:" for a throwaway database
//
//	auth:
//	  secret_key: "${SECRET_KEY}"
//	  algorithm: "HS256"        # HS256, HS384, HS512
//	  token_ttl: "5m"
//	  bcrypt_cost: 10
//	  admin_username: "admin"
//	  admin_password: "password"
//
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # text, json
//
//	tailscale:
//	  enabled: false
//	  hostname: "ecg-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//	  funnel: false
package config
