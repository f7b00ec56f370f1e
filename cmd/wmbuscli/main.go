package main

import (
	"github.com/robotalks/wmbus.go/pkg/cli/sh"

	_ "github.com/robotalks/wmbus.go/pkg/cli/cmds/frame"
)

//go-build: CGO_ENABLED=1

func main() {
	sh.Main()
}
