package main

import "github.com/dkeye/Meet/cmd/client/cmd"

func main() {
	cmd.Execute()
}
