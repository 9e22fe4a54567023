package main

import (
	"github.com/0xPolygon/polygon-evm/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
