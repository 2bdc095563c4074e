package main

import "pokernight/internal/cli"

func main() {
	cli.Execute()
}
