package main

import (
	"context"
	"os"

	"github.com/PipeOpsHQ/agent-kickoff/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}
