// Command blazify is the Blaze toolchain driver: `blaze|blazescript|blazex
// <path> [-o <out>] [-q] [-w] [-l]` (spec §4.7/§6). It dispatches on the
// source path's extension to internal/driver and, with -w, hands the whole
// pipeline to internal/watch to re-run on every debounced file change.
// Flag/command shape grounded on opal-lang-opal/cli/main.go's single
// RunE-backed cobra.Command.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blazify/blazify/internal/driver"
	"github.com/blazify/blazify/internal/watch"
)

const version = "blazify 0.1.0"

func main() {
	var (
		out   string
		quiet bool
		watchMode bool
		listing   bool
	)

	rootCmd := &cobra.Command{
		Use:           "blazify <path>",
		Short:         "Lex, parse, type-check and run or compile a Blaze program",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			build := func() error { return build(path, out, quiet, listing) }

			if !watchMode {
				return build()
			}
			if !quiet {
				fmt.Printf("watching %s for changes\n", path)
			}
			stop := make(chan struct{})
			defer close(stop)
			return watch.Run(path, build, func(err error) {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			}, stop)
		},
	}

	rootCmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults alongside the source file)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the version banner, listing and timing lines")
	rootCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "re-run the pipeline on every source change")
	rootCmd.Flags().BoolVarP(&listing, "listing", "l", false, "print the IR/bytecode listing")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// build runs the extension-dispatched pipeline once, printing the banner,
// optional listing, and timing line spec §4.7 describes unless quiet is set.
func build(path, out string, quiet, listing bool) error {
	start := time.Now()
	if !quiet {
		fmt.Println(version)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".bz", ".bzx":
		objOut := out
		if objOut == "" {
			objOut = swapExt(path, ".o")
		}
		linkedOut := swapExt(objOut, ".out")
		objOnly := out != "" && strings.HasSuffix(out, ".o")
		var res *driver.Result
		res, diagErr := driver.EmitObject(path, objOut, linkedOut, objOnly)
		if diagErr != nil {
			err = diagErr
		} else {
			text = res.Listing
		}
	case ".bzs":
		target := out
		if target == "" {
			target = swapExt(path, ".bze")
		}
		var res *driver.Result
		res, diagErr := driver.CompileToBytecode(path, target)
		if diagErr != nil {
			err = diagErr
		} else {
			text = res.Listing
		}
	case ".bze":
		res, diagErr := driver.RunBytecode(path)
		if diagErr != nil {
			err = diagErr
		} else {
			text = res.Value.String()
		}
	default:
		err = fmt.Errorf("unrecognized source extension %q", ext)
	}

	if err != nil {
		return err
	}
	if listing && !quiet {
		fmt.Println(text)
	}
	if !quiet {
		fmt.Printf("done in %s\n", time.Since(start))
	}
	return nil
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
