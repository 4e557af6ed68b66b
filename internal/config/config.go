// Package config resolves startup configuration for the CLI. Precedence
// is flag > environment variable > config file entry; everything is read
// once at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. The password is accepted from the
// environment only; there is no password flag, so it cannot leak through
// shell history or process listings.
const (
	EnvHost         = "ZHMC_HOST"
	EnvUserid       = "ZHMC_USERID"
	EnvPassword     = "ZHMC_PASSWORD"
	EnvNoVerifyCert = "ZHMC_NO_VERIFY_CERT"
	EnvCACerts      = "ZHMC_CA_CERTS"
	EnvFormat       = "ZHMC_FORMAT"
	EnvTimeout      = "ZHMC_TIMEOUT"
)

// DefaultTimeout bounds individual console requests.
const DefaultTimeout = 30 * time.Second

// Settings is the resolved startup configuration.
type Settings struct {
	Host       string
	Userid     string
	Password   string
	VerifyCert bool
	CACerts    string
	Format     string
	Timeout    time.Duration
}

// Entry is one named console in the config file.
type Entry struct {
	Host     string `yaml:"host"`
	Userid   string `yaml:"userid"`
	NoVerify bool   `yaml:"no_verify_cert"`
	CACerts  string `yaml:"ca_certs"`
}

// File is the on-disk configuration: named console entries plus the name
// used when no host is given explicitly.
type File struct {
	Default  string           `yaml:"default"`
	Consoles map[string]Entry `yaml:"consoles"`
}

// DefaultPath returns ~/.zhmc/config.yaml, or empty when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zhmc", "config.yaml")
}

// LoadFile reads the config file. A missing file is not an error; it
// yields an empty File.
func LoadFile(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return f, nil
}

// FromEnvironment reads the environment portion of the settings.
func FromEnvironment() Settings {
	s := Settings{
		Host:       os.Getenv(EnvHost),
		Userid:     os.Getenv(EnvUserid),
		Password:   os.Getenv(EnvPassword),
		VerifyCert: true,
		CACerts:    os.Getenv(EnvCACerts),
		Format:     os.Getenv(EnvFormat),
		Timeout:    DefaultTimeout,
	}
	if v := os.Getenv(EnvNoVerifyCert); v != "" {
		if noVerify, err := strconv.ParseBool(v); err == nil && noVerify {
			s.VerifyCert = false
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			s.Timeout = time.Duration(secs) * time.Second
		}
	}
	return s
}

// Resolve merges a config file entry under the environment settings. The
// entry fills only what the environment left empty; explicit flags are
// applied by the caller on top of the result.
func Resolve(env Settings, file File, consoleName string) (Settings, error) {
	name := consoleName
	if name == "" {
		name = file.Default
	}
	if name == "" {
		return env, nil
	}

	entry, ok := file.Consoles[name]
	if !ok {
		return env, fmt.Errorf("console %q not found in config file", name)
	}

	out := env
	if out.Host == "" {
		out.Host = entry.Host
	}
	if out.Userid == "" {
		out.Userid = entry.Userid
	}
	if entry.NoVerify {
		out.VerifyCert = false
	}
	if out.CACerts == "" {
		out.CACerts = entry.CACerts
	}
	return out, nil
}
