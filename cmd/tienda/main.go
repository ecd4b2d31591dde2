package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tienda",
	Short: "Tienda storefront backend CLI",
	Long:  "Tienda is the back-end of the shop: the HTTP server plus maintenance commands for the document store and uploaded images.",
}

func init() {
	// Server
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Maintenance
	rootCmd.AddCommand(storeCheckCmd)
	rootCmd.AddCommand(cleanupImagesCmd)
	rootCmd.AddCommand(hashCmd)
}
