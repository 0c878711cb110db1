package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

func codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "codes medical|dental",
		Short:     "List procedure codes",
		Long:      "Lists all medical CPT or dental CDT codes with their short and long descriptions.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"medical", "dental"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			family, err := models.ParseFamily(args[0])
			if err != nil {
				return err
			}

			client, _ := newClient(logger)

			var codes []models.Cpt
			switch family {
			case models.FamilyMedical:
				codes, err = client.MedicalCodes(cmd.Context())
			case models.FamilyDental:
				codes, err = client.DentalCodes(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("listing %s codes: %w", family, err)
			}

			return printJSON(cmd.OutOrStdout(), codes)
		},
	}
}
