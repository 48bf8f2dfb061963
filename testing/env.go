// Package testing prepares the process environment for package tests. Test
// files import it for its side effects.
package testing

import "os"

var defaults = map[string]string{
	"ODYSSEY_TEST_MODE": "1",
	// Unroutable so no test reaches a real renderer by accident.
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"REDIS_ADDR":    "127.0.0.1:0",
}

func init() {
	for key, val := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, val)
		}
	}
}
