package main

import "github.com/hurou927/fd-discover/cmd"

func main() {
	cmd.Execute()
}
