package config

import (
	"sync"

	"github.com/spf13/viper"
)

type Validator interface {
	Validate() error
}

// Config wraps the merged viper instance built from every matching file.
type Config struct {
	instance *viper.Viper
	opts     ConfigOptions
	mu       sync.RWMutex
	files    []string
}

type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	// LoadAll merges every <name>.<type> family found in BasePath, "config" first.
	LoadAll bool
}
