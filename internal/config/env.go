package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment signals consulted once at pipeline start.
const (
	EnvSkipBuild = "SKIP_BUILD"
	EnvDryRun    = "DRY_RUN"
)

// Overrides are the two independent environment gate signals.
type Overrides struct {
	SkipBuild bool
	DryRun    bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// OverridesFromEnv reads the gate signals through lookup. A nil lookup reads
// the process environment.
func OverridesFromEnv(lookup LookupFunc) Overrides {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Overrides{
		SkipBuild: isSet(lookup, EnvSkipBuild),
		DryRun:    isSet(lookup, EnvDryRun),
	}
}

func isSet(lookup LookupFunc, key string) bool {
	v, ok := lookup(key)
	return ok && IsTruthy(v)
}

// IsTruthy reports whether an environment value enables a signal. Any
// non-empty value does, including "0" and "false".
func IsTruthy(v string) bool {
	return v != ""
}

// LoadDotEnv loads environment variables from the first of .env/.env.local
// found in dir. Existing process environment variables are not overwritten.
func LoadDotEnv(dir string) (string, error) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		err := godotenv.Load(path)
		if err == nil {
			slog.Debug("Loaded environment variables", "path", path)
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}
