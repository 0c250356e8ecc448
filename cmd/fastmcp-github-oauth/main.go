package main

import (
	"github.com/liatrio/fastmcp-github-oauth/cmd"
)

// version is the application version, set at build time via ldflags.
var version = "0.1.0"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
