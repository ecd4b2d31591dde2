package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/config"
	"github.com/sesamoshop/tienda/internal/server"
	"github.com/sesamoshop/tienda/pkg/auth"
)

// tienda store:check verifies the document file parses and prints counts.
var storeCheckCmd = &cobra.Command{
	Use:   "store:check",
	Short: "Verify the database document parses and show entity counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		path := config.DatabaseFile()
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var doc models.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("document is not valid JSON: %w", err)
		}

		fmt.Printf("%s: OK\n", path)
		fmt.Printf("  users:      %d\n", len(doc.Users))
		fmt.Printf("  categories: %d\n", len(doc.Categories))
		fmt.Printf("  products:   %d\n", len(doc.Products))
		fmt.Printf("  orders:     %d\n", len(doc.Orders))
		fmt.Printf("  activity:   %d\n", len(doc.ActivityLog))
		return nil
	},
}

// tienda cleanup:images runs a one-shot orphaned image sweep.
var cleanupImagesCmd = &cobra.Command{
	Use:   "cleanup:images",
	Short: "Delete uploaded images no product references",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := server.Boot()
		if err != nil {
			return err
		}
		defer app.Close()

		rep, err := app.Collector.Collect()
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d file(s), %d referenced, deleted %d\n",
			rep.TotalFiles, rep.ProductImages, rep.DeletedCount)
		for _, name := range rep.DeletedFiles {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	},
}

// tienda hash prints the bcrypt hash for a password, for seeding admins.
var hashCmd = &cobra.Command{
	Use:   "hash <password>",
	Short: "Print the password hash to put in ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}
