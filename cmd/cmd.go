package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/pg9182/vpk/cmd/root"

	_ "github.com/pg9182/vpk/cmd/get"
	_ "github.com/pg9182/vpk/cmd/list"
	_ "github.com/pg9182/vpk/cmd/serve"
	_ "github.com/pg9182/vpk/cmd/verify"
	_ "github.com/pg9182/vpk/cmd/version"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return root.Command.ExecuteContext(ctx)
}
