package main

import "scholarbot/cmd"

func main() {
	cmd.Execute()
}
