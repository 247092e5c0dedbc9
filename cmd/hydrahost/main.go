// Command hydrahost runs the DNS, SMTP and POP3 servers configured in a
// TOML file or a settings database, together with the management API.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hydrahost",
		Short: "Multi-protocol network service host",
		Long: `Multi-protocol network service host.

Runs a small authoritative DNS server and minimal SMTP and POP3
servers on a shared runtime, with a REST management API and a
Prometheus metrics endpoint.
`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSettingsCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("hydrahost " + version + "\n"))
			return err
		},
	}
}
