package main

import (
	"github.com/pcsensei/pcsensei/cmd"
)

func main() {
	cmd.Execute()
}
