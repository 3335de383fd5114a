package main

import "github.com/ethpandaops/eip3074-protection/cmd"

func main() {
	cmd.Execute()
}
