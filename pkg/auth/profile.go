package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultProfile is the profile used when none is given.
const DefaultProfile = "DEFAULT"

// DefaultConfigLocation returns the OCI CLI config path under the home directory.
func DefaultConfigLocation() string {
	return filepath.Join(homeDir(), ".oci", "config")
}

// Profile is one section of an OCI CLI config file.
type Profile struct {
	Name                string
	Tenancy             string
	User                string
	Fingerprint         string
	KeyFile             string
	KeyContent          string
	PassPhrase          string
	Region              string
	DelegationTokenFile string
}

// LoadProfile reads the named profile from an OCI CLI config file. Keys
// missing from the profile fall back to the DEFAULT section.
func LoadProfile(path, name string) (Profile, error) {
	if path == "" {
		path = DefaultConfigLocation()
	}
	if name == "" {
		name = DefaultProfile
	}

	cfg, err := ini.Load(expandHome(path))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: loading config file %s: %v", ErrConfig, path, err)
	}
	sec, err := cfg.GetSection(name)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: profile %q not found in %s", ErrConfig, name, path)
	}
	def := cfg.Section(ini.DefaultSection)

	get := func(key string) string {
		if v := strings.TrimSpace(sec.Key(key).String()); v != "" {
			return v
		}
		return strings.TrimSpace(def.Key(key).String())
	}

	return Profile{
		Name:                name,
		Tenancy:             get("tenancy"),
		User:                get("user"),
		Fingerprint:         get("fingerprint"),
		KeyFile:             get("key_file"),
		KeyContent:          get("key_content"),
		PassPhrase:          get("pass_phrase"),
		Region:              get("region"),
		DelegationTokenFile: get("delegation_token_file"),
	}, nil
}

// validate checks the fields needed to sign requests with an API key.
func (p Profile) validate() error {
	var missing []string
	if p.User == "" {
		missing = append(missing, "user")
	}
	if p.Fingerprint == "" {
		missing = append(missing, "fingerprint")
	}
	if p.KeyFile == "" && p.KeyContent == "" {
		missing = append(missing, "key_file")
	}
	if p.Tenancy == "" {
		missing = append(missing, "tenancy")
	}
	if p.Region == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: profile %q is missing %s", ErrConfig, p.Name, strings.Join(missing, ", "))
	}
	return nil
}

// privateKey returns the PEM key material, reading key_file when the key
// is not inlined.
func (p Profile) privateKey() (string, error) {
	if p.KeyContent != "" {
		return p.KeyContent, nil
	}
	b, err := os.ReadFile(expandHome(p.KeyFile))
	if err != nil {
		return "", fmt.Errorf("%w: reading key_file: %v", ErrConfig, err)
	}
	return string(b), nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
