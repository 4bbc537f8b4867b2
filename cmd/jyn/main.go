package main

import "github.com/devicelab-dev/jyn/pkg/cli"

func main() {
	cli.Execute()
}
