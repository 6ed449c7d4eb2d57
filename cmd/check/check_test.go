package check

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/command/mocks"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/remote"
)

func TestParseRsyncVersion(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		expString string
		expError  bool
	}{
		{
			name: "Linux",
			output: "rsync  version 3.2.7  protocol version 31\n" +
				"Copyright (C) 1996-2022 by Andrew Tridgell, Wayne Davison, and others.\n",
			expString: "3.2.7",
		},
		{
			name:      "OldMacOS",
			output:    "rsync  version 2.6.9  protocol version 29\n",
			expString: "2.6.9",
		},
		{
			name:      "Openrsync",
			output:    "openrsync: protocol version 29\nrsync version 2.6.9 compatible\n",
			expString: "2.6.9",
		},
		{
			name:     "Garbage",
			output:   "command not found",
			expError: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			version, err := parseRsyncVersion(test.output)
			if test.expError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expString, version.String())
		})
	}
}

func TestProbeAll(t *testing.T) {
	cfg := config.Config{
		Remotes: map[string][]config.Destination{
			"web": {{RemoteHost: "c.example.com", RemotePath: "/srv/web"}},
			"project": {
				{RemoteHost: "a.example.com", RemotePath: "/srv/project"},
				{RemoteHost: "b.example.com", RemotePath: "/srv/project", Enabled: config.NewToggle(false)},
			},
		},
	}

	isHost := func(host string) interface{} {
		return mock.MatchedBy(func(c command.Command) bool {
			for _, arg := range c.Args {
				if arg == host {
					return true
				}
			}
			return false
		})
	}

	mockRunner := &mocks.Runner{}
	mockRunner.On("Run", mock.Anything, isHost("a.example.com")).Return(
		command.Result{Output: "/usr/bin/rsync\n"}, nil)
	mockRunner.On("Run", mock.Anything, isHost("b.example.com")).Return(
		command.Result{ExitCode: 255}, nil)
	mockRunner.On("Run", mock.Anything, isHost("c.example.com")).Return(
		command.Result{Output: "/usr/local/bin/rsync"}, nil)
	runner = mockRunner

	results := probeAll(context.Background(), cfg)
	require.Len(t, results, 3)

	assert.Equal(t, "project", results[0].key)
	assert.Equal(t, "/usr/bin/rsync", results[0].rsyncPath)
	assert.NoError(t, results[0].err)

	assert.Equal(t, "b.example.com", results[1].dest.Host)
	probeErr, ok := results[1].err.(*remote.ProbeError)
	require.True(t, ok)
	assert.Equal(t, remote.ProbeAuthOrHostKey, probeErr.Kind)

	assert.Equal(t, "web", results[2].key)
	assert.Equal(t, "/usr/local/bin/rsync", results[2].rsyncPath)
}

func TestCheckLocalRsync(t *testing.T) {
	mockRunner := &mocks.Runner{}
	mockRunner.On("Run", mock.Anything, mock.MatchedBy(func(c command.Command) bool {
		return c.Name == "rsync" && len(c.Args) == 1 && c.Args[0] == "--version"
	})).Return(command.Result{Output: "rsync  version 3.1.3  protocol version 31\n"}, nil)
	runner = mockRunner

	version, err := checkLocalRsync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.1.3", version.String())
	assert.False(t, version.LessThan(minRsyncVersion))
}

func TestRunMissingConfig(t *testing.T) {
	var out bytes.Buffer
	stdout = &out
	err := run(context.Background(), "/does/not/exist/rsync-ssh.yaml")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "does not exist"))
}
