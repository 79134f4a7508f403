package main

import (
	"github.com/imgvault/imgvault/pkg/cli"
)

func main() {
	cli.Execute()
}
