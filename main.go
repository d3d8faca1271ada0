package main

import "github.com/riskpilot/riskpilot/cmd"

func main() {
	cmd.Execute()
}
