// Package config provides configuration management for nebula-arrow.
//
// A single Config structure drives the ambient behaviour of the columnar
// array: how it logs, which compute kernels it is allowed to use, and the
// defaults of statistical reductions.
//
// # Key Features
//
// - Config: one structure with Logging, Capability, Compute and Metrics sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults and validation
//
// # Usage
//
//	cfg := config.Default()
//	if err := config.Load("nebula-arrow.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// ## Forcing fallback paths
//
// The capability section can downgrade individual kernels. This is how an
// operator pins the library to its generic implementations when a kernel
// is known to misbehave on their data:
//
//	# nebula-arrow.yaml
//	capability:
//	  minimum_version: v18.0.0
//	  overrides:
//	    sort_indices: unsupported
//	    replace_with_mask: caveat
//	compute:
//	  default_ddof: ${NEBULA_ARROW_DDOF}
package config
