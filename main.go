package main

import "github.com/deploymenttheory/go-ffsp/cmd"

func main() {
	cmd.Execute()
}
