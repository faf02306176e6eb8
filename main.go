package main

import "github.com/crystaldolphin/tickerbot/cmd"

func main() {
	cmd.Execute()
}
