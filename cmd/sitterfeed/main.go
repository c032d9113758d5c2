package main

import (
	"os"

	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
