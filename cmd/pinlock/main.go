package main

import "github.com/jmcleod/pinlock/cmd/pinlock/cmd"

func main() {
	cmd.Execute()
}
