package main

import (
	"github.com/pterodactyl/hangar/cmd"
)

func main() {
	cmd.Execute()
}
