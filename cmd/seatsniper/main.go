package main

import (
	"github.com/gouchan/seatsniper-sub001/internal/cli"
)

func main() {
	cli.Execute()
}
