package main

import "github.com/amterp/sitegate/internal/cli"

func main() {
	cli.Run()
}
