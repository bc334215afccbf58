package main

import (
	"github.com/atsaudio/atsbt/pkg/accessory"
	"github.com/atsaudio/atsbt/pkg/cli/sh"

	_ "github.com/atsaudio/atsbt/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	accessory.SetupFlags()
}

func main() {
	sh.Main()
}
