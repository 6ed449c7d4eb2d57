package util

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConsoleFormatter renders log entries the way rsync-ssh prints to the
// console:
//
//	[rsync-ssh] host[prefix]: message
//
// Every line of a multi-line message gets its own header, so that the output
// of concurrent transfers can be told apart.
type ConsoleFormatter struct{}

// Format implements logrus.Formatter.
func (ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	header := "[rsync-ssh] "
	host, _ := entry.Data["host"].(string)
	prefix, _ := entry.Data["prefix"].(string)
	switch {
	case host != "" && prefix != "":
		header += fmt.Sprintf("%s[%s]: ", host, prefix)
	case host != "":
		header += host + ": "
	case prefix != "":
		header += path.Base(prefix) + ": "
	}

	var level string
	switch entry.Level {
	case logrus.WarnLevel:
		level = "WARNING: "
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		level = "ERROR: "
	}

	var extra []string
	for key, value := range entry.Data {
		if key == "host" || key == "prefix" {
			continue
		}
		if entry.Level == logrus.DebugLevel || key == logrus.ErrorKey {
			extra = append(extra, fmt.Sprintf("%s=%v", key, value))
		}
	}
	sort.Strings(extra)

	message := entry.Message
	if len(extra) != 0 {
		message += " (" + strings.Join(extra, ", ") + ")"
	}

	var buf bytes.Buffer
	for i, line := range strings.Split(message, "\n") {
		buf.WriteString(header)
		if i == 0 {
			buf.WriteString(level)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
