package main

import "github.com/jmcleod/facelock/cmd/facelock/cmd"

func main() {
	cmd.Execute()
}
