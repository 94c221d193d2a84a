package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/manifest"
)

func entryFor(dirname, filename string) cache.Entry {
	return cache.Entry{Dirname: dirname, Filename: filename}
}

func inspectManifestCmd() *cobra.Command {
	var targetVersion string
	var filename string

	cmd := &cobra.Command{
		Use:   "inspect-manifest <dirname>",
		Short: "Fetch a dirname's manifest and print the resolved FileRevision per file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := manifest.ParseVersion(targetVersion)
			if err != nil {
				return fmt.Errorf("parse --version: %w", err)
			}
			cl, err := newClient(cache.WithLibraryVersion(v))
			if err != nil {
				return err
			}
			dirname := args[0]

			names, err := cl.ListFiles(cmd.Context(), dirname)
			if err != nil {
				return fmt.Errorf("inspect-manifest %s: %w", dirname, err)
			}
			if filename != "" {
				names = []string{filename}
			}
			sort.Strings(names)

			for _, name := range names {
				rev, err := cl.GetManifest(cmd.Context(), entryFor(dirname, name))
				if err != nil {
					fmt.Printf("%-40s <no match: %v>\n", name, err)
					continue
				}
				fmt.Printf("%-40s size=%-10d sha1=%s\n", name, rev.Size, rev.SHA1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&targetVersion, "version", cacheLibraryVersionDefault, "target library version to resolve against")
	cmd.Flags().StringVar(&filename, "filename", "", "inspect only this file instead of every file in the manifest")
	return cmd
}
