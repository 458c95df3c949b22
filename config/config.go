// Package config loads layered YAML configuration with viper: <name>.yaml, then
// <name>.local.yaml, then the env-mode variants, with environment variables on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/leeforge/imageproc/env_mode"
	"github.com/leeforge/imageproc/utils"
)

// EnvPrefix prefixes every environment override, e.g. IMAGEPROC_PIPELINE_QUALITY.
const EnvPrefix = "IMAGEPROC"

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: EnvPrefix,
	}
}

func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	var opts ConfigOptions
	if len(optsArr) == 0 {
		opts = DefaultConfigOptions()
	} else {
		opts = optsArr[0]
	}

	instance, files, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
		files:    files,
	}, nil
}

// Files lists the files merged into c, lowest priority first.
func (c *Config) Files() []string {
	return append([]string(nil), c.files...)
}

func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("❌ Config instance is nil")
	}

	if instance == nil {
		return fmt.Errorf("❌ Target instance is nil")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("❌ Failed to unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}
	return nil
}

// BindWithDefaults fills default tags, binds the files over them, then validates when
// instance implements Validator. Defaults are not re-applied after binding so that an
// explicit false or 0 in a file survives.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("❌ Failed to set defaults: %w", err)
	}

	if err := c.Bind(instance); err != nil {
		return err
	}

	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("❌ Config validation failed: %w", err)
		}
	}
	return nil
}

func (c *Config) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.instance.Get(key)
}

func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instance.Set(key, value)
}

// CreateConfig merges the matching files into one viper instance.
func CreateConfig(opts ConfigOptions) (*viper.Viper, []string, error) {
	configPaths := getConfigFilePaths(opts)
	if opts.LoadAll {
		configPaths = getAllConfigFilePaths(opts)
	}
	if len(configPaths) == 0 {
		return nil, nil, fmt.Errorf("❌ No valid configuration files found in path: %s", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, configPath := range configPaths {
		tempV := viper.New()
		tempV.SetConfigFile(configPath)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("❌ Error reading config file %s: %w", configPath, err)
		}

		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(envKeyReplacer)
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	// environment variables win over every file
	applyEnvOverrides(v, opts.EnvPrefix)

	return v, configPaths, nil
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// EnvKey returns the environment variable overriding key: pipeline.crop-x becomes
// IMAGEPROC_PIPELINE_CROP_X.
func EnvKey(prefix, key string) string {
	envKey := strings.ToUpper(envKeyReplacer.Replace(key))
	if prefix != "" {
		envKey = prefix + "_" + envKey
	}
	return envKey
}

// applyEnvOverrides replaces every known key that has a non-empty environment variable.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	for _, key := range v.AllKeys() {
		if envValue := os.Getenv(EnvKey(envPrefix, key)); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func getConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	fileNames := []string{
		opts.FileName,
		fmt.Sprintf("%s.local", opts.FileName),
	}
	for _, alias := range env_mode.Aliases(env_mode.Mode()) {
		fileNames = append(fileNames,
			fmt.Sprintf("%s.%s", opts.FileName, alias),
			fmt.Sprintf("%s.%s.local", opts.FileName, alias),
		)
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}

func getAllConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	baseNames := getConfigBaseNames(opts.BasePath, opts.FileType)
	if len(baseNames) == 0 {
		return nil
	}

	sort.Strings(baseNames)
	baseNames = moveFirst(baseNames, opts.FileName)
	seen := make(map[string]struct{}, len(baseNames))
	for _, baseName := range baseNames {
		tempOpts := opts
		tempOpts.FileName = baseName
		tempOpts.LoadAll = false
		for _, path := range getConfigFilePaths(tempOpts) {
			if _, exists := seen[path]; exists {
				continue
			}
			seen[path] = struct{}{}
			configFiles = append(configFiles, path)
		}
	}

	return configFiles
}

func getConfigBaseNames(basePath, fileType string) []string {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil
	}

	suffix := "." + fileType
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		base := stripConfigSuffix(strings.TrimSuffix(name, suffix))
		if base == "" {
			continue
		}
		seen[base] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

func stripConfigSuffix(name string) string {
	name = strings.TrimSuffix(name, ".local")
	for _, mode := range []env_mode.ENV_MODE{env_mode.DevMode, env_mode.ProMode, env_mode.TestMode} {
		for _, alias := range env_mode.Aliases(mode) {
			if strings.HasSuffix(name, "."+alias) {
				return strings.TrimSuffix(name, "."+alias)
			}
		}
	}
	return name
}

func moveFirst(names []string, first string) []string {
	index := -1
	for i, name := range names {
		if name == first {
			index = i
			break
		}
	}

	if index <= 0 {
		return names
	}

	out := make([]string, 0, len(names))
	out = append(out, first)
	out = append(out, names[:index]...)
	out = append(out, names[index+1:]...)
	return out
}
