package app

import "os"

const testModeEnv = "ODYSSEY_TEST_MODE"

// InTestMode reports whether ODYSSEY_TEST_MODE=1. In test mode configuration
// comes from the environment only and .env files are ignored.
func InTestMode() bool {
	return os.Getenv(testModeEnv) == "1"
}
