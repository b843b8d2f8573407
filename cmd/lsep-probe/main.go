package main

import "github.com/oshokin/lsep/cmd/lsep-probe/cmd"

func main() {
	cmd.Execute()
}
