package main

import (
	"os"

	"expenses/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
