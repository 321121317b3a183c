package main

import (
	"github.com/agentpkg/srcdeps/pkg/cmd"
	_ "github.com/agentpkg/srcdeps/pkg/vcs/git"
)

func main() {
	cmd.Execute()
}
