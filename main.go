package main

import (
	"github.com/sidkik/rsync-ssh/cmd"
	"github.com/sidkik/rsync-ssh/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
