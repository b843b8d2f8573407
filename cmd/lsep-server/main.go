package main

import "github.com/oshokin/lsep/cmd/lsep-server/cmd"

func main() {
	cmd.Execute()
}
