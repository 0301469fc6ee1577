package root

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pg9182/vpk"
	"github.com/pg9182/vpk/httpblob"
	"github.com/pg9182/vpk/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var Flags struct {
	Archives       []string
	Siblings       bool
	StrictTreeSize bool
	FoldEmpty      bool
}

var Command = &cobra.Command{
	Use:          "vpk",
	Short:        "Reads Valve VPK archives.",
	SilenceUsage: true,
}

var GroupVPK = &cobra.Group{
	ID:    "vpk",
	Title: "Commands:",
}

func init() {
	Command.AddGroup(GroupVPK)
	Command.PersistentFlags().StringSliceVarP(&Flags.Archives, "archive", "a", nil, "additional vpk archive paths or urls to load")
	Command.PersistentFlags().BoolVar(&Flags.Siblings, "siblings", true, "if a single _dir.vpk path is given, also load the _NNN.vpk archives next to it")
	Command.PersistentFlags().BoolVar(&Flags.FoldEmpty, "fold-empty", false, "treat a tree path or extension of a single space as empty (\" /readme.txt\" becomes \"readme.txt\")")
	Command.PersistentFlags().BoolVar(&Flags.StrictTreeSize, "strict-tree-size", true, "reject directories whose tree doesn't match the header tree size")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Blobs resolves the provided paths or http(s) URLs, plus any from --archive,
// to blobs.
func Blobs(args []string) ([]vpk.Blob, error) {
	var bs []vpk.Blob
	args = append(args[:len(args):len(args)], Flags.Archives...)
	for _, arg := range args {
		if isURL(arg) {
			b, err := httpblob.New(arg)
			if err != nil {
				return nil, err
			}
			bs = append(bs, b)
		} else {
			bs = append(bs, vpk.OpenBlob(arg))
		}
	}
	if Flags.Siblings && len(args) == 1 && !isURL(args[0]) {
		sib, err := Siblings(args[0])
		if err != nil {
			return nil, err
		}
		bs = append(bs, sib...)
	}
	return bs, nil
}

// Siblings finds the numbered archives next to the _dir.vpk at p. It returns
// nothing if p isn't named like a directory.
func Siblings(p string) ([]vpk.Blob, error) {
	dir, fn := filepath.Split(p)
	name, idx, err := vpk.SplitName(fn)
	if err != nil || idx != vpk.ArchiveIndexDir {
		return nil, nil
	}
	if dir == "" {
		dir = "."
	}
	ds, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("find archives for %q: %w", p, err)
	}
	var bs []vpk.Blob
	for _, d := range ds {
		// ensure it's a numbered vpk belonging to us
		if n, i, err := vpk.SplitName(d.Name()); err == nil && n == name && i != vpk.ArchiveIndexDir && !d.IsDir() {
			bs = append(bs, vpk.OpenBlob(filepath.Join(dir, d.Name())))
		}
	}
	return bs, nil
}

// Load loads the VPK made up of the provided paths.
func Load(ctx context.Context, args []string) (*vpk.Archive, error) {
	bs, err := Blobs(args)
	if err != nil {
		return nil, err
	}
	a := vpk.New(
		vpk.WithStrictTreeSize(Flags.StrictTreeSize),
		vpk.WithFoldEmptyMarkers(Flags.FoldEmpty),
	)
	if err := a.Load(ctx, bs...); err != nil {
		return nil, err
	}
	return a, nil
}

// ArgVPK updates cmd to take the VPK paths as the first n arguments (or all
// arguments if n is negative), storing them in out. It also sets the command
// group and registers completions.
func ArgVPK(out *[]string, cmd *cobra.Command, n int) {
	if n == 0 {
		panic("vpk arg count must not be zero")
	}
	cmd.GroupID = GroupVPK.ID

	args := func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("vpk path is required")
		}
		if n > 0 {
			if len(args) < n {
				return fmt.Errorf("expected %d vpk paths", n)
			}
			*out = args[:n]
		} else {
			*out = args
		}
		return nil
	}
	if next := cmd.Args; next != nil {
		cmd.Args = cobra.MatchAll(args, next)
	} else {
		cmd.Args = args
	}

	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if n < 0 || len(args) < n {
			return []string{strings.TrimPrefix(vpk.Ext, ".")}, cobra.ShellCompDirectiveFilterFileExt
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// FlagIncludeExclude adds --exclude and --include flags to set, returning a
// function checking if a file is excluded.
func FlagIncludeExclude(set *pflag.FlagSet, short bool) func(name string) (bool, error) {
	var Exclude, Include *[]string
	var (
		ExcludeDoc = "Excludes files or directories matching the provided glob (anchor to the start with /)"
		IncludeDoc = "Negates --exclude for files or directories matching the provided glob (if only includes are provided, it excludes everything else)"
	)
	if short {
		Exclude = set.StringSliceP("exclude", "e", nil, ExcludeDoc)
		Include = set.StringSliceP("include", "E", nil, IncludeDoc)
	} else {
		Exclude = set.StringSlice("exclude", nil, ExcludeDoc)
		Include = set.StringSlice("include", nil, IncludeDoc)
	}
	return func(name string) (bool, error) {
		return Excluded(*Exclude, *Include, name)
	}
}

// Excluded checks name against exclude and include globs.
func Excluded(exclude, include []string, name string) (bool, error) {
	var excluded bool
	for _, x := range exclude {
		if m, err := internal.MatchGlobParents(x, name); err != nil {
			return false, fmt.Errorf("process excludes: match %q against glob %q: %w", name, x, err)
		} else if m {
			excluded = true
			break
		}
	}
	if len(exclude) == 0 && len(include) != 0 {
		excluded = true
	}
	for _, x := range include {
		if m, err := internal.MatchGlobParents(x, name); err != nil {
			return false, fmt.Errorf("process includes: match %q against glob %q: %w", name, x, err)
		} else if m {
			excluded = false
			break
		}
	}
	return excluded, nil
}
