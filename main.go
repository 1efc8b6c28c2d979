/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/greyfundr/back-end/cmd"

func main() {
	cmd.Execute()
}
