package misc

import (
	"os"
)

var secretsMap = map[string]string{}

// SetSecret registers a fallback value for key, used when the environment doesn't define it.
func SetSecret(key, value string) {
	secretsMap[key] = value
}

func GetSecret(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return secretsMap[key]
}
