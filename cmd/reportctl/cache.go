package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the report cache",
}

var cacheBumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Invalidate every cached trial balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()
		version, err := rt.cache.Bump(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report cache version %d\n", version)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheBumpCmd)
	rootCmd.AddCommand(cacheCmd)
}
