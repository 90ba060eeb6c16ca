package cli

import (
	"fmt"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/version"

	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			fmt.Printf("oauth-bridge %s\n", info.Version)
			if info.GitCommit != "" {
				fmt.Printf("  commit: %s\n", info.GitCommit)
			}
			fmt.Printf("  go:     %s\n", info.GoVersion)
			fmt.Printf("  os:     %s\n", info.Platform)
		},
	}
}
