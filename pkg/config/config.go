package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/rsync-ssh/pkg/errors"
)

// parseErrTemplate is shown when the config isn't valid yaml, or doesn't
// have the expected shape. The yaml library doesn't say where in the file
// the problem is, so all we can do is pass its message on.
const parseErrTemplate = "%s could not be parsed.\n" +
	"Check that every field is spelled as in the `rsync-ssh config` output,\n" +
	"that `enabled` is true, false, 1 or 0, and that lists are yaml lists.\n\n" +
	"The parser reported:\n" +
	"%s"

// fs is swapped for an in-memory filesystem in unit tests.
var fs = afero.NewOsFs()

type versionMismatchError struct {
	path, actual string
}

func (err versionMismatchError) Error() string {
	return err.FriendlyMessage()
}

func (err versionMismatchError) FriendlyMessage() string {
	return fmt.Sprintf("%s was written for config version %q, but this rsync-ssh "+
		"only reads %q.\nMove it aside and run `rsync-ssh config` to generate a new one.",
		err.path, err.actual, SupportedConfigVersion)
}

// decode reads the config at `path` into `cfg` and checks the settings that
// don't depend on the local machine. The file is decoded leniently first so
// that an unsupported version is reported rather than the unknown fields it
// most likely brings along.
func decode(path string, cfg *Config) error {
	configBytes, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return errors.FileNotFound{Path: path}
	}
	if err != nil {
		return errors.WithContext(err, "read file")
	}

	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}

	if cfg.Version != SupportedConfigVersion {
		return versionMismatchError{path: path, actual: cfg.Version}
	}

	if err := yaml.UnmarshalStrict(configBytes, cfg, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}

	if problems := cfg.validate(); len(problems) != 0 {
		return errors.ConfigError{Path: path, Problems: problems}
	}
	return nil
}

// validate returns every problem with the settings, so that they can be fixed
// in one go.
func (c Config) validate() (problems []string) {
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.MaxParallel < 0 {
		problems = append(problems, "max_parallel must not be negative")
	}

	for _, key := range c.RemoteKeys() {
		if strings.Trim(key, `/\`) == "" {
			problems = append(problems, fmt.Sprintf("remote key %q has no path segments", key))
		}

		for i, dest := range c.Remotes[key] {
			field := fmt.Sprintf("remotes[%q][%d]", key, i)
			if dest.RemoteHost == "" {
				problems = append(problems, fmt.Sprintf("%s: %s", field,
					errors.MissingFieldError{Field: "remote_host"}))
			}
			if dest.RemotePath == "" {
				problems = append(problems, fmt.Sprintf("%s: %s", field,
					errors.MissingFieldError{Field: "remote_path"}))
			}
			if dest.RemotePort < 0 || dest.RemotePort > 65535 {
				problems = append(problems, fmt.Sprintf(
					"%s: remote_port %d is out of range", field, dest.RemotePort))
			}
		}
	}
	return problems
}
