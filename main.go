package main

import "example.com/freightlink/services/marketplace/cmd"

func main() {
	cmd.Execute()
}
