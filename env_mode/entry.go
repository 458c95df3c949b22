// Package env_mode resolves the deployment mode that selects environment specific
// configuration files.
package env_mode

import (
	"os"
	"strings"
	"sync"
)

const ENV_MODE_KEY = "IMAGEPROC_ENV"

type ENV_MODE string

const (
	DevMode  ENV_MODE = "development"
	ProMode  ENV_MODE = "production"
	TestMode ENV_MODE = "test"
)

var (
	currentEnv ENV_MODE
	modeMu     sync.RWMutex
)

func ParseEnv(env string) ENV_MODE {
	normalizedEnv := strings.ToLower(strings.TrimSpace(env))
	switch normalizedEnv {
	case "development", "dev", "":
		return DevMode
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Mode returns the current mode, read from IMAGEPROC_ENV on first use.
func Mode() ENV_MODE {
	modeMu.RLock()
	env := currentEnv
	modeMu.RUnlock()
	if env != "" {
		return env
	}

	modeMu.Lock()
	defer modeMu.Unlock()
	if currentEnv == "" {
		currentEnv = ParseEnv(os.Getenv(ENV_MODE_KEY))
	}
	return currentEnv
}

// SetMode overrides the mode for this process and its children.
func SetMode(mode ENV_MODE) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentEnv = mode
	os.Setenv(ENV_MODE_KEY, string(mode))
}

// Aliases returns the file name suffixes accepted for mode, canonical name first.
func Aliases(mode ENV_MODE) []string {
	switch mode {
	case ProMode:
		return []string{"production", "pro", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
