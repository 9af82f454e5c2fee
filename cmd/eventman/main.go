package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/eventman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "eventman: %v\n", err)
		os.Exit(1)
	}
}
