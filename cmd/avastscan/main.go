package main

import "github.com/CEA-Brad/avast-toolkit/internal/cli"

func main() {
	cli.Execute()
}
