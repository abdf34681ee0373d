package main

import "github.com/appbaseio/world-search/commands"

func main() {
	commands.Execute()
}
