package main

import (
	"os"

	"github.com/hashgraph-online/dip721-sdk-go/cmd/dip721-mint/commands"
)

func main() {
	os.Exit(commands.Execute(os.Args[1:], commands.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}))
}
