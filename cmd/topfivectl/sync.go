package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/topfive-api/internal/app"
	"github.com/noah-isme/topfive-api/internal/models"
)

func syncCommand(rt *cliEnv) *cobra.Command {
	var actorID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import the catalog search results as approved suggestions",
		Long: `Search the video catalog for the configured query and import every result
as an approved suggestion. Videos already present are skipped.

Example:
  topfivectl sync --actor 6f1c0d9e-3b7a-4f0e-9d53-0c7d2b8f4a11`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if actorID == "" {
				actorID = rt.cfg.Sync.ActorID
			}
			if strings.TrimSpace(actorID) == "" {
				return errors.New("an actor id is required: pass --actor or set CATALOG_SYNC_ACTOR_ID")
			}

			a, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.CatalogSync == nil {
				return errors.New("catalog sync needs YOUTUBE_API_KEY")
			}
			result, err := a.CatalogSync.Sync(cmd.Context(), models.SystemActor(actorID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requested %d, created %d, skipped %d\n",
				result.Requested, result.Created, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "user id recorded as the importer in the activity log")
	return cmd
}
