package main

import "github.com/oshokin/release-matrix/cmd/release-matrix/cmd"

func main() {
	cmd.Execute()
}
