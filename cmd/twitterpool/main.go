package main

import (
	"os"

	"github.com/LiamVDB1/twitter-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
