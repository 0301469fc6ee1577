package version

import (
	"fmt"
	"runtime/debug"

	"github.com/pg9182/vpk/cmd/root"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	root.Command.AddCommand(Command)
}

func main() {
	var vcs struct {
		revision string
		modified bool
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				vcs.revision = s.Value
			case "vcs.modified":
				vcs.modified = s.Value == "true"
			}
		}
	}

	version := "vpk "
	if len(vcs.revision) >= 7 {
		version += vcs.revision[:7]
	} else {
		version += "unknown"
	}
	if vcs.modified {
		version += " (modified)"
	}
	fmt.Println(version)
}
