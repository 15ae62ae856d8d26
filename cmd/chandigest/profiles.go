package main

import (
	"fmt"

	"chandigest/internal/config"

	"github.com/spf13/cobra"
)

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the configured digest profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			for _, name := range cfg.ProfileNames() {
				p := cfg.Profiles[name]
				marker := " "
				if name == cfg.DefaultProfile {
					marker = "*"
				}
				fmt.Printf("%s %-16s %d source channel(s) -> %s\n",
					marker, name, len(p.SourceChannels), p.OutputChannel)
			}
			return nil
		},
	}
}
