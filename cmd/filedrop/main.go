// Package main is the entry point for filedrop.
package main

import "filedrop/internal/cli"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
