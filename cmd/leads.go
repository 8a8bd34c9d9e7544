package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/export"
	"github.com/sells-group/lead-crm/internal/leadsync"
	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/research"
	"github.com/sells-group/lead-crm/internal/store"
)

var (
	leadsStatus      string
	leadsTemperature string
	leadsCityID      string
	leadsOut         string
	leadsImportCity  string
	leadsSyncTarget  string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List, export and import leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status:      model.LeadStatus(leadsStatus),
			Temperature: model.Temperature(leadsTemperature),
			CityID:      leadsCityID,
		})
		if err != nil {
			return err
		}
		return printJSON(leads)
	},
}

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status:      model.LeadStatus(leadsStatus),
			Temperature: model.Temperature(leadsTemperature),
			CityID:      leadsCityID,
			Limit:       10000,
		})
		if err != nil {
			return err
		}

		// Tags are not hydrated by ListLeads; pull them per lead.
		for i := range leads {
			tags, err := st.ListLeadTags(ctx, leads[i].ID)
			if err != nil {
				return err
			}
			for _, t := range tags {
				leads[i].Tags = append(leads[i].Tags, t.Name)
			}
		}

		if err := export.WriteLeads(leadsOut, leads); err != nil {
			return err
		}
		zap.L().Info("exported leads",
			zap.Int("count", len(leads)),
			zap.String("path", leadsOut),
		)
		return nil
	},
}

var leadsImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import leads from an XLSX file",
	Long:  "Rows are reconciled with the same fill-blanks merge the research pipeline uses, so re-importing a sheet never overwrites existing data or duplicates contacts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		city, err := st.GetCity(ctx, leadsImportCity)
		if err != nil {
			return err
		}

		candidates, err := export.ReadCandidates(args[0])
		if err != nil {
			return err
		}

		rec := research.NewReconciler(st, "Import")
		imported := 0
		for _, cand := range candidates {
			if _, err := rec.Reconcile(ctx, cand, *city); err != nil {
				zap.L().Warn("skipping row",
					zap.String("name", cand.Name), zap.Error(err))
				continue
			}
			imported++
		}

		zap.L().Info("import finished",
			zap.Int("rows", len(candidates)),
			zap.Int("imported", imported),
		)
		return nil
	},
}

var leadsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push leads to Notion or Salesforce",
	Long:  "Mirrors leads into the configured target. Records are matched downstream before writing, so the sync can be re-run safely.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		target, err := initSyncTarget(leadsSyncTarget)
		if err != nil {
			return err
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status:      model.LeadStatus(leadsStatus),
			Temperature: model.Temperature(leadsTemperature),
			CityID:      leadsCityID,
			Limit:       10000,
		})
		if err != nil {
			return err
		}
		for i := range leads {
			tags, err := st.ListLeadTags(ctx, leads[i].ID)
			if err != nil {
				return err
			}
			for _, t := range tags {
				leads[i].Tags = append(leads[i].Tags, t.Name)
			}
		}

		cityList, err := st.ListCities(ctx)
		if err != nil {
			return err
		}
		cities := make(map[string]model.City, len(cityList))
		for _, c := range cityList {
			cities[c.ID] = c
		}

		summary, err := leadsync.Run(ctx, target, leads, cities)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func init() {
	for _, c := range []*cobra.Command{leadsListCmd, leadsExportCmd, leadsSyncCmd} {
		c.Flags().StringVar(&leadsStatus, "status", "", "filter by lead status")
		c.Flags().StringVar(&leadsTemperature, "temperature", "", "filter by temperature")
		c.Flags().StringVar(&leadsCityID, "city-id", "", "filter by city ID")
	}

	leadsExportCmd.Flags().StringVar(&leadsOut, "out", "leads.xlsx", "output file path")

	leadsImportCmd.Flags().StringVar(&leadsImportCity, "city-id", "", "city to attach imported leads to (required)")
	_ = leadsImportCmd.MarkFlagRequired("city-id")

	leadsSyncCmd.Flags().StringVar(&leadsSyncTarget, "target", "", "sync target: notion or salesforce (required)")
	_ = leadsSyncCmd.MarkFlagRequired("target")

	leadsCmd.AddCommand(leadsListCmd, leadsExportCmd, leadsImportCmd, leadsSyncCmd)
	rootCmd.AddCommand(leadsCmd)
}
