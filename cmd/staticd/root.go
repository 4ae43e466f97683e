package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "staticd",
		Short: "Static file HTTP/1.x origin server",
		Long: "staticd serves a document root over HTTP/1.x: GET and HEAD only, " +
			"no TLS, no keep-alive, no compression, no directory listing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML/JSON/TOML config file")
	return cmd
}
