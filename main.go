package main

import "github.com/kozaktomas/imageproxy/cmd"

func main() {
	cmd.Execute()
}
