// Package main is the single-binary entrypoint for syncfix.
package main

import "github.com/syncfix/syncfix/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
