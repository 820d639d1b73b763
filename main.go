package main

import "reactagent/cmd"

func main() {
	cmd.Execute()
}
