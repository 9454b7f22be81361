package cmd

import (
	"fmt"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/TheSinghX/AiImageCraft/web"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Show database statistics",
	Long:  `Display statistics about registered users and generated images.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		users, err := db.CountUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		images, err := db.CountImages(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count images: %w", err)
		}

		fmt.Println("Database Statistics:")
		fmt.Printf("Registered Users: %s\n", humanize.Comma(users))
		fmt.Printf("Generated Images: %s\n", humanize.Comma(images))

		recent, err := db.GetImages(cmd.Context(), database.ImageQuery{Order: database.SortNewest, Limit: 5})
		if err == nil && len(recent) > 0 {
			fmt.Println("\nRecent Images:")
			for _, image := range recent {
				fmt.Printf("  ID: %d, Created: %s, Size: %s, Prompt: %q\n",
					image.ID, image.CreatedAt.Format("2006-01-02 15:04:05"), web.FormatImageSize(image.ImageData), image.Prompt)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbStatsCmd)
}
