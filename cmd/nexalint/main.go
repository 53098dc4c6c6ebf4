// # cmd/nexalint/main.go
package main

import (
	"nexalint/internal/ui/cli"
	"os"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
