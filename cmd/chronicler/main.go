package main

import "github.com/openswoop/chronicler/cmd"

func main() {
	cmd.Execute()
}
