package main

import (
	"log"

	"github.com/aussiebroadwan/archivepanel/internal/panel/cli"
)

func main() {
	log.SetFlags(0)

	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("panelctl: %s", cli.Describe(err))
	}
}
