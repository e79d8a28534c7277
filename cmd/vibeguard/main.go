package main

import "vibeguard/internal/cli"

func main() {
	cli.Execute()
}
