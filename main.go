package main

import (
	"github.com/diffsec/vekta/cmd"
)

func main() {
	cmd.Execute()
}
