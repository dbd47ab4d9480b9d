package main

import "github.com/okian/workscore/internal/cli"

func main() {
	cli.Execute()
}
