package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                              string
		helpString, prompt, defaultAnswer string
		stdin                             string
		expPrompt, expResult              string
	}{
		{
			name:       "NoDefaultAnswer",
			helpString: "explanation",
			prompt:     "prompt",
			stdin:      "user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "ChooseDefaultAnswer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			stdin:         "1\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "EmptyResponsePicksDefault",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			stdin:         "\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "one",
		},
		{
			name:          "EnterManually",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			stdin:         "2\nuser input\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "InvalidInput",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			stdin:         "invalid input\n3\n1\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: \n",
			expResult: "one",
		},
	}

	type promptUserResult struct {
		resp string
		err  error
	}
	for _, test := range tests {
		// Setup mocks.
		out := bytes.NewBuffer(nil)
		stdinReader, stdinWriter := io.Pipe()
		stdout = out
		stdin = stdinReader

		// Start the promptUser function.
		resultChan := make(chan promptUserResult)
		go func() {
			resp, err := promptUser(bufio.NewReader(stdin), test.helpString, test.prompt,
				test.defaultAnswer)
			resultChan <- promptUserResult{resp, err}
		}()

		// Provide the user input.
		fmt.Fprintln(stdinWriter, test.stdin)

		// Check that promptUser behaved as expected.
		result := <-resultChan
		assert.NoError(t, result.err, test.name)
		assert.Equal(t, test.expResult, result.resp, test.name)

		// Test the prompt after `promptUser` has exited so that we can be sure
		// we're not testing before `promptUser` has a chance to print to stdout.
		assert.Equal(t, test.expPrompt, out.String(), test.name)
	}
}

func TestHostValidation(t *testing.T) {
	for _, host := range []string{"example.com", "10.0.0.1", "my-server.my-domain.tld"} {
		_, ok := hostValidationFn(host)
		assert.True(t, ok, host)
	}
	for _, host := range []string{"", "alice@example.com", "example.com:22", "exa mple.com"} {
		msg, ok := hostValidationFn(host)
		assert.False(t, ok, host)
		assert.NotEmpty(t, msg)
	}
}

func TestGenerateConfig(t *testing.T) {
	isTerminal = func() bool { return false }
	getCurrentUser = func() string { return "alice" }

	cfg, err := generateConfig("/home/alice/project", options{})
	require.NoError(t, err)

	syncOnSave := true
	assert.Equal(t, config.Config{
		SyncOnSave: &syncOnSave,
		Excludes:   []string{".git*", "_build", "blib", "Build"},
		Options:    []string{"--dry-run", "--delete"},
		Remotes: map[string][]config.Destination{
			"project": {{
				RemoteHost: "my-server.my-domain.tld",
				RemotePath: "/home/alice/Projects/project",
				RemotePort: 22,
				RemoteUser: "alice",
				Enabled:    config.NewToggle(true),
			}},
		},
	}, cfg)

	cfg, err = generateConfig("/home/alice/project", options{
		folders:    []string{"api", "/src/web/"},
		remoteHost: "example.com",
		remoteUser: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "/src/web/"}, cfg.Folders)
	assert.Equal(t, "/home/bob/Projects/api", cfg.Remotes["api"][0].RemotePath)
	assert.Equal(t, "example.com", cfg.Remotes["web"][0].RemoteHost)
}

func TestGenerateConfigPrompts(t *testing.T) {
	isTerminal = func() bool { return true }
	getCurrentUser = func() string { return "alice" }

	out := bytes.NewBuffer(nil)
	stdout = out
	stdin = bytes.NewBufferString("2\nalice@bad\n2\nexample.com\n1\n")

	cfg, err := generateConfig("/home/alice/project", options{})
	require.NoError(t, err)
	assert.Equal(t, "example.com", cfg.Remotes["project"][0].RemoteHost)
	assert.Equal(t, "alice", cfg.Remotes["project"][0].RemoteUser)
	assert.Contains(t, out.String(), "The host must be a hostname or IP address")
}

func TestSetupConfig(t *testing.T) {
	getWorkingDirectory = func() (string, error) { return "/home/alice/project", nil }
	isTerminal = func() bool { return false }
	stdout = bytes.NewBuffer(nil)

	var written string
	writeConfig = func(path string, _ config.Config) error {
		written = path
		return nil
	}

	configExists = func(string) (bool, error) { return true, nil }
	err := setupConfig(options{})
	assert.Equal(t, errors.NewFriendlyError(
		"rsync_ssh configuration already exists at /home/alice/project/rsync-ssh.yaml."), err)
	assert.Empty(t, written)

	configExists = func(string) (bool, error) { return false, nil }
	assert.NoError(t, setupConfig(options{}))
	assert.Equal(t, "/home/alice/project/rsync-ssh.yaml", written)
}
