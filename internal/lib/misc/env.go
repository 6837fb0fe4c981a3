package misc

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnvSettings loads .env.local then .env - earlier files win since godotenv never overrides
// variables that are already set.
func LoadEnvSettings(logger *slog.Logger) {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			Debugf(logger, "loaded env file:%s", name)
		}
	}
}

// LoadEnvForNetwork loads .env.{network} - ie: .env.sandbox holding generated mnemonics for local testing.
func LoadEnvForNetwork(logger *slog.Logger, network string) {
	name := fmt.Sprintf(".env.%s", network)
	if err := godotenv.Load(name); err == nil {
		Infof(logger, "loaded env file:%s", name)
	}
}
