package main

import "github.com/OpenTraceLab/OpenTraceSmooth/cmd/otsm/cmd"

func main() {
	cmd.Execute()
}
