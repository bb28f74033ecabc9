package koanf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	delimiter = "."
	// nesting separator used in environment variable names, e.g. ASSISTANT_OPENAI__TOKEN.
	envSeparator = "__"
	tag          = "koanf"
)

// Provide loads the configuration of the named service on top of def
// and panics when it cannot be loaded.
func Provide[T any](name string, def T) T {
	cfg, err := Load(name, def)
	if err != nil {
		panic(fmt.Sprintf("failed to load %s configuration: %v", name, err))
	}

	return cfg
}

// Load reads, in order of increasing precedence, the defaults in def,
// the TOML file named by <NAME>_CONFIG_FILE (or ./<name>.toml when present)
// and the <NAME>_ prefixed environment variables.
func Load[T any](name string, def T) (T, error) {
	var cfg T

	k := koanf.New(delimiter)

	if err := k.Load(structs.Provider(def, tag), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	prefix := strings.ToUpper(name) + "_"

	path, explicit := os.LookupEnv(prefix + "CONFIG_FILE")
	if !explicit {
		path = name + ".toml"
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(prefix, delimiter, func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), envSeparator, delimiter)
	}), nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: tag}); err != nil {
		return cfg, fmt.Errorf("unmarshal: %w", err)
	}

	return cfg, nil
}
