package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PROMORAG_"

	maxConfigFileSize = 1024 * 1024
)

// Options locates the optional configuration sources.
type Options struct {
	// File is a YAML configuration file. Empty skips file loading.
	File string
	// DotEnv is a .env file loaded into the environment before overrides
	// are read. A missing file is ignored.
	DotEnv string
}

// Load resolves configuration from defaults, the YAML file and environment
// variables, then validates it.
//
// Environment variables map PROMORAG_SECTION_FIELD to section.field,
// splitting on the first underscore after the prefix:
//
//	PROMORAG_LLM_API_KEY          -> llm.api_key
//	PROMORAG_VECTORSTORE_PROVIDER -> vectorstore.provider
//	PROMORAG_RERANKER_TOP_N       -> reranker.top_n
func Load(opts Options) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", opts.DotEnv, err)
		}
	}

	k := koanf.New(".")

	if opts.File != "" {
		content, err := readConfigFile(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

// readConfigFile reads the file through a single descriptor so the checked
// properties belong to the bytes that are parsed.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties rejects directories, oversized files and,
// outside Windows, files writable by group or others. The file may carry an
// API key.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return errors.New("is a directory")
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o022 != 0 {
		return fmt.Errorf("insecure permissions %v: must not be group or world writable", info.Mode().Perm())
	}
	return nil
}
