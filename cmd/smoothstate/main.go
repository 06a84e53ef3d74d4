package main

import cmd "github.com/rohmanhakim/smoothstate/internal/cli"

func main() {
	cmd.Execute()
}
