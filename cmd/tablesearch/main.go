package main

import "github.com/example/tablesearch/internal/interfaces/cli"

func main() {
	cli.Execute()
}
