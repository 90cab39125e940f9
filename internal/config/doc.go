// Package config loads and validates partner-gateway configuration.
//
// Configuration is read once at process start from a YAML (default) or TOML
// file. ${VAR_NAME} patterns anywhere in the file are expanded from the
// environment before parsing, so secrets can live outside the file:
//
//	partner_a:
//	  shared_secret: ${PARTNER_A_SHARED_SECRET}
//	  token_secret: ${PARTNER_A_TOKEN_SECRET}
//	  token_ttl: 10m
//	  provider_url: https://provider.example.com/unlock
//	  provider_origin: https://provider.example.com
//	partner_b:
//	  shared_secret: ${PARTNER_B_SHARED_SECRET}
//
// Missing shared secrets or cipher keys fail validation and abort startup;
// no per-request code path ever discovers a missing secret. The parsed Config
// is passed by reference into the components that need it and never mutated
// afterwards.
package config
