/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/marcstream/cmd/marcstream/cmd"
)

func main() {
	cmd.Execute()
}
