package main

import "github.com/theblitlabs/tinyml-runner/cmd/cli"

func main() {
	cli.Execute()
}
