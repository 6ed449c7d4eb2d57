package util

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/sync"
	"github.com/sidkik/rsync-ssh/pkg/transfer"
)

func TestConsoleFormatter(t *testing.T) {
	tests := []struct {
		name  string
		entry logrus.Entry
		exp   string
	}{
		{
			name: "HostAndPrefix",
			entry: logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "sending incremental file list\nmain.go",
				Data:    logrus.Fields{"host": "example.com", "prefix": "project"},
			},
			exp: "[rsync-ssh] example.com[project]: sending incremental file list\n" +
				"[rsync-ssh] example.com[project]: main.go\n",
		},
		{
			name: "HostOnly",
			entry: logrus.Entry{
				Level:   logrus.ErrorLevel,
				Message: "connection refused",
				Data:    logrus.Fields{"host": "example.com"},
			},
			exp: "[rsync-ssh] example.com: ERROR: connection refused\n",
		},
		{
			name: "PrefixOnly",
			entry: logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "is unknown",
				Data:    logrus.Fields{"prefix": "project/src"},
			},
			exp: "[rsync-ssh] src: WARNING: is unknown\n",
		},
		{
			name: "ErrorField",
			entry: logrus.Entry{
				Level:   logrus.ErrorLevel,
				Message: "Post command failed",
				Data:    logrus.Fields{logrus.ErrorKey: "exit 1", "session": "abc"},
			},
			exp: "[rsync-ssh] ERROR: Post command failed (error=exit 1)\n",
		},
		{
			name: "DebugShowsFields",
			entry: logrus.Entry{
				Level:   logrus.DebugLevel,
				Message: "Transition",
				Data:    logrus.Fields{"state": "Done", "session": "abc"},
			},
			exp: "[rsync-ssh] Transition (session=abc, state=Done)\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			test.entry.Time = time.Now()
			out, err := ConsoleFormatter{}.Format(&test.entry)
			assert.NoError(t, err)
			assert.Equal(t, test.exp, string(out))
		})
	}
}

func TestPromptYesOrNo(t *testing.T) {
	tests := []struct {
		input string
		exp   bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, test := range tests {
		var out bytes.Buffer
		stdout = &out
		stdin = strings.NewReader(test.input)

		ok, err := PromptYesOrNo("Overwrite?")
		assert.NoError(t, err)
		assert.Equal(t, test.exp, ok, test.input)
		assert.Equal(t, "Overwrite? [y/N] ", out.String())
	}
}

func TestHandleFatalError(t *testing.T) {
	var exitCode int
	exit = func(code int) { exitCode = code }

	HandleFatalError(errors.WithContext(errors.NewFriendlyError("friendly"), "context"))
	assert.Equal(t, 1, exitCode)
}

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "rsync-ssh-util")
	require.NoError(t, err)

	getwd = func() (string, error) { return dir, nil }
	_, err = LoadConfig("")
	_, isFriendly := errors.RootCause(err).(errors.FriendlyError)
	assert.True(t, isFriendly)

	cfg := config.Config{
		Remotes: map[string][]config.Destination{
			filepath.Base(dir): {{RemoteHost: "example.com", RemotePath: "/srv/project"}},
		},
	}
	require.NoError(t, config.Write(filepath.Join(dir, config.FileName), cfg))

	parsed, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, cfg.Remotes, parsed.Remotes)
	assert.Equal(t, filepath.Join(dir, config.FileName), parsed.GetPath())
}

func TestPrintSummary(t *testing.T) {
	dest := config.Merge(config.Global{}, config.Destination{
		RemoteHost: "example.com",
		RemotePath: "/srv/project",
		RemoteUser: "alice",
	})
	res := sync.AggregateResult{
		TotalJobs: 2,
		Results: []transfer.Result{
			{Job: transfer.Job{Prefix: "project", Destination: dest}, Kind: transfer.Success},
			{Job: transfer.Job{Prefix: "project", Destination: dest,
				SpecificPath: "/work/project/main.go"}, Kind: transfer.TransferFailed},
		},
	}

	var out bytes.Buffer
	PrintSummary(&out, res)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "success")
	assert.Contains(t, lines[0], "example.com[project] -> alice@example.com:22:/srv/project")
	assert.Contains(t, lines[1], "transfer failed")
	assert.Contains(t, lines[1], "(/work/project/main.go)")
	assert.Equal(t, "Rsyncing to 2 destination(s) - done.", lines[2])
}
