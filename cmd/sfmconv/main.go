package main

import "sfmconv/internal/cli"

func main() {
	cli.Execute()
}
