package main

import "github.com/kozaktomas/face-verifier/cmd"

func main() {
	cmd.Execute()
}
