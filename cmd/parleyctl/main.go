package main

import "github.com/avelar/parley/cmd/parleyctl/cmd"

func main() {
	cmd.Execute()
}
