package main

import (
	"os"

	"github.com/LeventeLantos/freesms-notify/cmd/freesms/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
