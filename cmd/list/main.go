package list

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pg9182/vpk/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK            []string
	HumanReadable  bool
	Long           bool
	Test           bool
	IncludeExclude func(string) (bool, error)
}

var Command = &cobra.Command{
	Use:     "list vpk_path...",
	Short:   "Lists the contents of a VPK",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		main(cmd.Context())
	},
}

func init() {
	Command.Flags().Bool("help", false, "help for "+Command.Name()) // prevent the default short help flag from being set
	Command.Flags().BoolVarP(&Flags.HumanReadable, "human-readable", "h", false, "show sizes in human-readable form")
	Command.Flags().BoolVarP(&Flags.Long, "long", "l", false, "show detailed file metadata (adds the following columns to the beginning: archive crc32[hex] offset[bytes] length[bytes] preload[bytes])")
	Command.Flags().BoolVarP(&Flags.Test, "test", "t", false, "also attempt to read contents and verify checksums (adds a column with OK/ERR to the end)")
	Flags.IncludeExclude = root.FlagIncludeExclude(Command.Flags(), true)
	root.ArgVPK(&Flags.VPK, Command, -1)
	root.Command.AddCommand(Command)
}

func main(ctx context.Context) {
	r, err := root.Load(ctx, Flags.VPK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open vpk: %v\n", err)
		os.Exit(1)
	}

	names := r.ListFiles()

	var pathLen int
	for _, name := range names {
		pathLen = max(pathLen, min(len(name), 64))
	}

	var testErrCount, testCount int
	for _, name := range names {
		if skip, err := Flags.IncludeExclude(name); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		} else if skip {
			continue
		}

		if Flags.Long {
			e, err := r.Entry(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: entry %q: %v\n", name, err)
				os.Exit(1)
			}
			if Flags.HumanReadable {
				fmt.Printf("%s %08X %9s %9s %5d  ", e.Archive, e.CRC32, humanize.Bytes(uint64(e.Offset)), humanize.Bytes(uint64(e.Length)), e.PreloadBytes)
			} else {
				fmt.Printf("%s %08X %9d %9d %5d  ", e.Archive, e.CRC32, e.Offset, e.Length, e.PreloadBytes)
			}
		}
		if Flags.Test {
			fmt.Printf("%*s", -pathLen, name)
			os.Stdout.Sync()
		} else {
			fmt.Printf("%s", name)
		}

		var testErr error
		if Flags.Test {
			testCount++
			if f, err := r.GetFile(ctx, name); err != nil {
				testErr = err
			} else {
				testErr = f.Verify()
			}
			if testErr != nil {
				testErrCount++
				fmt.Printf(" ERR")
			} else {
				fmt.Printf("  OK")
			}
		}
		fmt.Printf("\n")

		if testErr != nil {
			fmt.Fprintf(os.Stderr, "warning: entry %q: test: %v\n", name, testErr)
		}
	}
	if Flags.Test {
		fmt.Fprintf(os.Stderr, "%d/%d files valid\n", testCount-testErrCount, testCount)
		if testErrCount != 0 {
			os.Exit(1)
		}
	}
}
