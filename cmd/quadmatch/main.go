package main

import (
	"github.com/quadmatch/quadmatch/internal/cli"
)

func main() {
	cli.Execute()
}
