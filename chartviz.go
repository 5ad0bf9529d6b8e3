package main

import (
	"github.com/fredbi/chartviz/internal/cmd"
)

func main() {
	cli := cmd.NewCommand()

	if err := cli.Execute(); err != nil {
		cli.Fatalf(err)
	}
}
