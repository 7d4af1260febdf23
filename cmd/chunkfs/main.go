// Copyright © 2018 One Concern

package main

import "github.com/oneconcern/chunkfs/cmd/chunkfs/cmd"

func main() {
	cmd.Execute()
}
