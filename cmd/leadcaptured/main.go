// cmd/leadcaptured/main.go
package main

import (
	"os"

	"github.com/dalemusser/leadcapture/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
