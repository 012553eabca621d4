package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-incident-analysis-ui/internal/connectors/sqlstore"
	"go-incident-analysis-ui/internal/scenario"
)

func newSeedCommand(v *viper.Viper) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the built-in scenarios into the SQL snapshot store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			catalog, err := scenario.LoadCatalog()
			if err != nil {
				return err
			}

			names := only
			if len(names) == 0 {
				names = catalog.Names()
			}
			snapshots := make([]*scenario.Snapshot, 0, len(names))
			for _, name := range names {
				snap, err := catalog.Get(name)
				if err != nil {
					return err
				}
				snapshots = append(snapshots, snap)
			}

			store, err := sqlstore.NewStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Seed(commandContext(cmd), snapshots...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d scenario(s) into %s\n", len(snapshots), store.Driver())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "Seed only these scenarios")
	return cmd
}
