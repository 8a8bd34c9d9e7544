package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-crm/internal/model"
)

var (
	cityName    string
	cityCountry string
	cityISO2    string
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Manage cities",
}

var citiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cities, err := st.ListCities(ctx)
		if err != nil {
			return err
		}
		if cities == nil {
			cities = []model.City{}
		}
		return printJSON(cities)
	},
}

var citiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a city (idempotent on name + iso2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		city, err := st.GetOrCreateCity(ctx, cityName, cityCountry, cityISO2)
		if err != nil {
			return err
		}
		return printJSON(city)
	},
}

func init() {
	citiesAddCmd.Flags().StringVar(&cityName, "name", "", "city name (required)")
	citiesAddCmd.Flags().StringVar(&cityCountry, "country", "", "country name (required)")
	citiesAddCmd.Flags().StringVar(&cityISO2, "iso2", "", "ISO 3166-1 alpha-2 country code")
	_ = citiesAddCmd.MarkFlagRequired("name")
	_ = citiesAddCmd.MarkFlagRequired("country")

	citiesCmd.AddCommand(citiesListCmd, citiesAddCmd)
	rootCmd.AddCommand(citiesCmd)
}
