package main

import "github.com/roleautomator/jamfroles/cmd"

func main() {
	cmd.Execute()
}
