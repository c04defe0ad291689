package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/config"
	"github.com/FryrAI/keel/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "set up a repository for keel",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveWorkspace()
		if err != nil {
			return err
		}

		cfg := config.Default()
		cfgPath := configPath(root)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
				return fmt.Errorf("keel: create state dir: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("keel: write config: %w", err)
			}
		} else {
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
		}

		s, err := store.Open(dbPath(root, cfg))
		if err != nil {
			return fmt.Errorf("keel: open graph store: %w", err)
		}
		defer s.Close()

		nodes, _ := s.AllNodes()
		edges, _ := s.CountEdges()
		profiles, _ := s.AllModuleProfiles()
		if err := store.WriteManifest(manifestPath(root, cfg), store.NewManifest(len(nodes), edges, len(profiles))); err != nil {
			return fmt.Errorf("keel: write manifest: %w", err)
		}

		fmt.Printf("keel: initialized %s\n", filepath.Join(root, cfg.Workspace.StateDir))
		return nil
	},
}
