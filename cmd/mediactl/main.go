package main

import (
	"fmt"
	"os"

	"github.com/JuanRG-20221039/paulofraire-media/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
