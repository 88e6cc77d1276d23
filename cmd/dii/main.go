package main

import "inflammation-planner/internal/cli"

func main() {
	cli.Execute()
}
