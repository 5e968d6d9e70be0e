// Package main is the entrypoint for the errtrack command line tool.
package main

import "github.com/kiranshivaraju/errortracker/internal/cli"

func main() {
	cli.Execute()
}
