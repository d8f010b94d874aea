package main

import "repolist/internal/cmd"

func main() {
	cmd.Execute()
}
