package main

import "github.com/rishikanthc/scriberr-desktop/cmd"

func main() {
	cmd.Execute()
}
