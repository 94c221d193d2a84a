package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
)

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <dirname> <filename>",
		Short: "Remove a single cached file's local copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := newClient()
			if err != nil {
				return err
			}
			entry := cache.Entry{Dirname: args[0], Filename: args[1]}
			if err := cl.Remove(cmd.Context(), entry); err != nil {
				return fmt.Errorf("rm %s: %w", entry.LocalPath(), err)
			}
			fmt.Printf("removed %s\n", entry.LocalPath())
			return nil
		},
	}
}
