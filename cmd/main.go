package main

import "github.com/mcpchat/notion-chat/cmd/cli"

func main() {
	cli.Execute()
}
