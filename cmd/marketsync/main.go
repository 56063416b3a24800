package main

import (
	"os"

	"github.com/xelth-com/eckmarket/internal/buildinfo"
)

func main() {
	rootCmd.Version = buildinfo.Current().String()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
