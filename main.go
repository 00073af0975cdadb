package main

import "github.com/openptc/ptcd/cmd"

func main() {
	cmd.Execute()
}
