package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/rsync-ssh/pkg/errors"
)

const (
	// FileName is the name of the project configuration file.
	FileName = "rsync-ssh.yaml"

	// InitialConfigVersion is the first version of the rsync-ssh config.
	// Config files that do not specify a version will default to this
	// version.
	InitialConfigVersion = "v1alpha1"

	// SupportedConfigVersion is the config version understood by this
	// binary.
	SupportedConfigVersion = "v1alpha1"

	// DefaultTimeout is the ssh connect timeout in seconds.
	DefaultTimeout = 10

	// DefaultPort is the ssh port used when a destination doesn't set one.
	DefaultPort = 22

	// DefaultSSHBinary is the ssh client invoked when none is configured.
	DefaultSSHBinary = "ssh"
)

// Config is the project configuration. It describes which local folders are
// mirrored, and the destinations each of them is mirrored to.
type Config struct {
	Version string `json:"version,omitempty"`

	// Folders are the local workspace folders. Relative paths are evaluated
	// relative to the directory containing the config file. If empty, the
	// directory containing the config file is the only workspace folder.
	Folders []string `json:"folders,omitempty"`

	SyncOnSave *bool    `json:"sync_on_save,omitempty"`
	Excludes   []string `json:"excludes,omitempty"`
	Options    []string `json:"options,omitempty"`

	// Timeout is the ssh connect timeout in seconds.
	Timeout   int    `json:"timeout,omitempty"`
	SSHBinary string `json:"ssh_binary,omitempty"`

	// SSHCommand is the legacy name of SSHBinary.
	SSHCommand string `json:"ssh_command,omitempty"`

	// MaxParallel bounds the number of concurrent transfers. Zero means
	// every transfer of a run starts immediately.
	MaxParallel int `json:"max_parallel,omitempty"`

	Remotes map[string][]Destination `json:"remotes,omitempty"`

	// Only populated and consumed by rsync-ssh. Never set by user.
	path string
}

// Destination is a single remote target for a local folder, as written in
// the config file.
type Destination struct {
	RemoteHost        string   `json:"remote_host"`
	RemotePath        string   `json:"remote_path"`
	RemotePort        int      `json:"remote_port,omitempty"`
	RemoteUser        string   `json:"remote_user,omitempty"`
	RemotePreCommand  string   `json:"remote_pre_command,omitempty"`
	RemotePostCommand string   `json:"remote_post_command,omitempty"`
	Enabled           *Toggle  `json:"enabled,omitempty"`
	Options           []string `json:"options,omitempty"`
	Excludes          []string `json:"excludes,omitempty"`
}

// Toggle is a boolean that also accepts the integers 0 and 1, since older
// configurations wrote `enabled: 1`.
type Toggle bool

// UnmarshalJSON implements json.Unmarshaler.
func (t *Toggle) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "true", "1":
		*t = true
	case "false", "0":
		*t = false
	default:
		return fmt.Errorf("cannot use %s as a boolean", b)
	}
	return nil
}

// NewToggle returns a pointer to a Toggle with the given value.
func NewToggle(b bool) *Toggle {
	t := Toggle(b)
	return &t
}

// GetPath returns the filepath that the config was parsed from. A getter
// method is used rather than making the field public so that it can't get set
// by the yaml Unmarshalling.
func (c Config) GetPath() string {
	return c.path
}

// ShouldSyncOnSave returns whether saved files should be synced
// automatically. It defaults to true.
func (c Config) ShouldSyncOnSave() bool {
	return c.SyncOnSave == nil || *c.SyncOnSave
}

// RemoteKeys returns the configured remote keys in sorted order.
func (c Config) RemoteKeys() []string {
	var keys []string
	for key := range c.Remotes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Global returns the settings that apply to every destination.
func (c Config) Global() Global {
	global := Global{
		Excludes:  c.Excludes,
		Options:   c.Options,
		Timeout:   c.Timeout,
		SSHBinary: c.SSHBinary,
	}
	if global.Timeout == 0 {
		global.Timeout = DefaultTimeout
	}
	if global.SSHBinary == "" {
		global.SSHBinary = c.SSHCommand
	}
	if global.SSHBinary == "" {
		global.SSHBinary = DefaultSSHBinary
	}
	return global
}

// Destinations returns the merged destinations configured for `key`.
func (c Config) Destinations(key string) []EffectiveDestination {
	global := c.Global()
	var destinations []EffectiveDestination
	for _, dest := range c.Remotes[key] {
		destinations = append(destinations, Merge(global, dest))
	}
	return destinations
}

// Find returns the path to the config file in `dir` or the closest of its
// parents.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WithContext(err, "get absolute path")
	}

	for curr := dir; ; curr = filepath.Dir(curr) {
		candidate := filepath.Join(curr, FileName)
		if _, err := fs.Stat(candidate); err == nil {
			return candidate, nil
		}

		if parent := filepath.Dir(curr); parent == curr {
			return "", errors.FileNotFound{Path: filepath.Join(dir, FileName)}
		}
	}
}

// Parse parses and validates the config file at `path`.
func Parse(path string) (Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, errors.WithContext(err, "expand config path")
	}

	config := Config{
		path:    path,
		Version: InitialConfigVersion,
	}
	if err := decode(path, &config); err != nil {
		return Config{}, errors.WithContext(err, "parse")
	}

	config.Folders, err = resolveFolders(filepath.Dir(path), config.Folders)
	if err != nil {
		return Config{}, errors.WithContext(err, "resolve folders")
	}
	return config, nil
}

// Write writes the config to `path`.
func Write(path string, cfg Config) error {
	cfg.Version = SupportedConfigVersion
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Exists returns whether a file exists at `path`.
func Exists(path string) (bool, error) {
	return afero.Exists(fs, path)
}

func resolveFolders(relativeTo string, folders []string) ([]string, error) {
	if len(folders) == 0 {
		return []string{relativeTo}, nil
	}

	var resolved []string
	for _, folder := range folders {
		expanded, err := homedir.Expand(folder)
		if err != nil {
			return nil, errors.WithContext(err, "expand homedir")
		}

		// Evaluate relative paths relative to the config path.
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(relativeTo, expanded)
		}
		resolved = append(resolved, filepath.Clean(expanded))
	}
	return resolved, nil
}

// CurrentUser returns the name of the user running rsync-ssh, as reported
// by the environment.
func CurrentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if user := os.Getenv(key); user != "" {
			return user
		}
	}
	return "username"
}
