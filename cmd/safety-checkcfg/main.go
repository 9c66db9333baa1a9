package main

import "home-safety-monitor/cmd/safety-checkcfg/cmd"

func main() {
	cmd.Execute()
}
