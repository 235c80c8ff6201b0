package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's
// standard library. Supports both ${VAR} and $VAR syntax.
//
// Examples:
//   - ${REDIS_ADDR} -> value of REDIS_ADDR
//   - $MONGO_URI -> value of MONGO_URI
//
// Missing variables expand to empty string; ValidateAll catches required
// fields left empty by a missing variable.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
