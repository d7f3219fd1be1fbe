package main

import "github.com/nminhdao/registrar/internal/cli"

func main() {
	cli.Execute()
}
