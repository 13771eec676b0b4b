package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(&cli{out: os.Stdout, errOut: os.Stderr}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fireview: %v\n", err)
		os.Exit(1)
	}
}
