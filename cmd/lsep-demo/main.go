package main

import "github.com/oshokin/lsep/cmd/lsep-demo/cmd"

func main() {
	cmd.Execute()
}
