package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/beefboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "beefboard:", err)
		os.Exit(1)
	}
}
