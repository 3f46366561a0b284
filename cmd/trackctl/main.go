package main

import (
	"os"

	"github.com/marconicastro/zeropragas-sub000/cmd/trackctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
