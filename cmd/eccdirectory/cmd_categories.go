package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [category]",
		Short: "List procedure categories",
		Long:  "Lists the top-level procedure categories, or the subcategories of the given category.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			client, _ := newClient(logger)

			var (
				categories []models.Category
				err        error
			)
			if len(args) == 1 {
				categories, err = client.Subcategories(cmd.Context(), args[0])
			} else {
				categories, err = client.Categories(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("listing categories: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), categories)
		},
	}
}
