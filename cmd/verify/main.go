package verify

import (
	"context"
	"fmt"
	"os"

	"github.com/pg9182/vpk/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK     []string
	Verbose bool
}

var Command = &cobra.Command{
	Use:   "verify vpk_path...",
	Short: "Verifies the checksums of the files in a VPK",
	Run: func(cmd *cobra.Command, args []string) {
		main(cmd.Context())
	},
}

func init() {
	root.ArgVPK(&Flags.VPK, Command, -1)
	Command.Flags().BoolVarP(&Flags.Verbose, "verbose", "v", false, "display files as they are verified")
	root.Command.AddCommand(Command)
}

func main(ctx context.Context) {
	r, err := root.Load(ctx, Flags.VPK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open vpk: %v\n", err)
		os.Exit(1)
	}

	var failure int
	for _, name := range r.ListFiles() {
		if Flags.Verbose {
			fmt.Printf("%s: ", name)
			os.Stdout.Sync()
		}
		if err := func() error {
			f, err := r.GetFile(ctx, name)
			if err != nil {
				return err
			}
			return f.Verify()
		}(); err != nil {
			if Flags.Verbose {
				fmt.Printf("ERROR\n")
			}
			fmt.Fprintf(os.Stderr, "%s: ERROR - %v\n", name, err)
			failure++
		} else if Flags.Verbose {
			fmt.Printf("OK\n")
		}
	}
	if failure != 0 {
		os.Exit(1)
	}
}
