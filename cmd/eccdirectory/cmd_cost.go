package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

func costCmd(name string) *cobra.Command {
	var zip, lat, lng string

	cmd := &cobra.Command{
		Use:   name + " <code>",
		Short: fmt.Sprintf("Look up %s cost estimates for a procedure code", name),
		Long:  fmt.Sprintf("Looks up %s cost estimates for a procedure code, either by zip code (--zip) or by coordinates (--lat and --lng).", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			family, err := models.ParseFamily(name)
			if err != nil {
				return err
			}

			loc, err := locationFromFlags(zip, lat, lng)
			if err != nil {
				return err
			}

			client, _ := newClient(logger)
			results, err := client.Cost(cmd.Context(), family, args[0], loc)
			if err != nil {
				return fmt.Errorf("looking up %s costs: %w", name, err)
			}

			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&zip, "zip", "", "Zip code")
	cmd.Flags().StringVar(&lat, "lat", "", "Degrees latitude")
	cmd.Flags().StringVar(&lng, "lng", "", "Degrees longitude")

	return cmd
}

func locationFromFlags(zip, lat, lng string) (models.Location, error) {
	switch {
	case zip != "" && (lat != "" || lng != ""):
		return models.Location{}, fmt.Errorf("--zip cannot be combined with --lat/--lng")
	case zip != "":
		return models.Location{Zip: zip}, nil
	case lat != "" && lng != "":
		return models.Location{Lat: lat, Lng: lng}, nil
	default:
		return models.Location{}, fmt.Errorf("either --zip or both --lat and --lng are required")
	}
}
