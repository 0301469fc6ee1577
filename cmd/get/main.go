package get

import (
	"context"
	"fmt"
	"os"

	"github.com/pg9182/vpk/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK   []string
	Files []string
}

var Command = &cobra.Command{
	Use:     "get vpk_path file...",
	Aliases: []string{"cat"},
	Short:   "Reads files from a VPK to stdout",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Files = args[1:]
		main(cmd.Context())
	},
}

func init() {
	root.ArgVPK(&Flags.VPK, Command, 1)
	root.Command.AddCommand(Command)
}

func main(ctx context.Context) {
	r, err := root.Load(ctx, Flags.VPK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open vpk: %v\n", err)
		os.Exit(1)
	}

	var failed int
	for _, name := range Flags.Files {
		if err := func() error {
			f, err := r.GetFile(ctx, name)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(f.Data)
			return err
		}(); err != nil {
			fmt.Fprintf(os.Stderr, "error: read file %q: %v\n", name, err)
			failed++
		}
	}
	if failed != 0 {
		os.Exit(1)
	}
}
