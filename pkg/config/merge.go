package config

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// AlwaysExcluded is excluded from every transfer regardless of
// configuration.
const AlwaysExcluded = ".DS_Store"

// Global contains the settings shared by every destination. Timeout and
// SSHBinary have no per-destination override.
type Global struct {
	Excludes  []string
	Options   []string
	Timeout   int
	SSHBinary string
}

// Identity uniquely identifies a destination.
type Identity struct {
	Host       string
	Port       int
	User       string
	RemotePath string
}

// EffectiveDestination is a destination after the global defaults have been
// applied. It is never modified after Merge returns it.
type EffectiveDestination struct {
	Host        string
	Port        int
	User        string
	RemotePath  string
	Enabled     bool
	PreCommand  string
	PostCommand string

	// Excludes never contains duplicates. Its order isn't significant.
	Excludes []string

	// Options are passed to rsync in order. Later flags may override
	// earlier ones.
	Options []string

	Timeout   int
	SSHBinary string
}

// Merge applies the global settings to `dest`. Excludes and options are
// concatenated with the global values first. All other destination settings
// win over the defaults.
func Merge(global Global, dest Destination) EffectiveDestination {
	port := dest.RemotePort
	if port == 0 {
		port = DefaultPort
	}

	enabled := true
	if dest.Enabled != nil {
		enabled = bool(*dest.Enabled)
	}

	var options []string
	options = append(options, global.Options...)
	options = append(options, dest.Options...)

	return EffectiveDestination{
		Host:        dest.RemoteHost,
		Port:        port,
		User:        dest.RemoteUser,
		RemotePath:  dest.RemotePath,
		Enabled:     enabled,
		PreCommand:  dest.RemotePreCommand,
		PostCommand: dest.RemotePostCommand,
		Excludes:    dedupe(global.Excludes, []string{AlwaysExcluded}, dest.Excludes),
		Options:     options,
		Timeout:     global.Timeout,
		SSHBinary:   global.SSHBinary,
	}
}

// dedupe concatenates the lists, keeping the first occurrence of each
// element.
func dedupe(lists ...[]string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var deduped []string
	for _, list := range lists {
		for _, elem := range list {
			if seen.Add(elem) {
				deduped = append(deduped, elem)
			}
		}
	}
	return deduped
}

// Identity returns the identity of the destination.
func (d EffectiveDestination) Identity() Identity {
	return Identity{Host: d.Host, Port: d.Port, User: d.User, RemotePath: d.RemotePath}
}

// Target is the ssh login target, either `user@host` or just `host`.
func (d EffectiveDestination) Target() string {
	if d.User == "" {
		return d.Host
	}
	return d.User + "@" + d.Host
}

// Label describes the destination's login, e.g. `alice@example.com:22`.
func (d EffectiveDestination) Label() string {
	return fmt.Sprintf("%s:%d", d.Target(), d.Port)
}

func (d EffectiveDestination) String() string {
	return fmt.Sprintf("%s:%s", d.Label(), d.RemotePath)
}
