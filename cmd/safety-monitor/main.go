package main

import "home-safety-monitor/cmd/safety-monitor/cmd"

func main() {
	cmd.Execute()
}
