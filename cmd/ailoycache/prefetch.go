package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/construct"
)

// wholeDirClaimer is the prefetch command's destination: it has no
// typed result, it simply claims every file ListFiles reports for
// the given dirname so PrepareFiles can warm the whole directory.
type wholeDirClaimer struct{}

func (wholeDirClaimer) ClaimFiles(ctx context.Context, cl *cache.Client, key string) (construct.Claim[struct{}], error) {
	names, err := cl.ListFiles(ctx, key)
	if err != nil {
		return construct.Claim[struct{}]{}, err
	}
	entries := make([]cache.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, cache.Entry{Dirname: key, Filename: name})
	}
	return construct.Claim[struct{}]{Entries: entries}, nil
}

func prefetchCmd() *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "prefetch <dirname>",
		Short: "Warm the local cache for every file in a dirname's manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := newClient()
			if err != nil {
				return err
			}
			dirname := args[0]

			if showProgress {
				return runPrefetchWithProgressUI(cmd.Context(), cl, dirname)
			}
			return runPrefetchPlain(cmd.Context(), cl, dirname)
		},
	}
	cmd.Flags().BoolVar(&showProgress, "progress", false, "render a terminal progress bar instead of log lines")
	return cmd
}

func runPrefetchPlain(ctx context.Context, cl *cache.Client, dirname string) error {
	for fe, err := range construct.PrepareFiles[struct{}](ctx, cl, dirname, wholeDirClaimer{}) {
		if err != nil {
			return fmt.Errorf("prefetch %s: %w", dirname, err)
		}
		fmt.Printf("[%d/%d] %s ready (%d bytes)\n", fe.Index, fe.Total, fe.Entry.Filename, len(fe.Bytes))
	}
	return nil
}
