/*
Copyright © 2025 The serial-hunter authors
*/
package main

import "github.com/serialhunter/serialhunter/cmd"

func main() {
	cmd.Execute()
}
