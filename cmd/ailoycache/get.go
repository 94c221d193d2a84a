package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <dirname> <filename>",
		Short: "Fetch (or locate) a single cached file and print its local path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := newClient()
			if err != nil {
				return err
			}
			entry := cache.Entry{Dirname: args[0], Filename: args[1]}
			if _, err := cl.Get(cmd.Context(), entry); err != nil {
				return fmt.Errorf("get %s: %w", entry.LocalPath(), err)
			}
			fmt.Println(cl.ResolvedPath(entry))
			return nil
		},
	}
}
