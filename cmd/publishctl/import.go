package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/app"
	"github.com/maheshrc27/campaign-publisher/internal/service"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	"github.com/spf13/cobra"
)

// newImportCmd loads a content calendar file into a campaign as drafts.
func newImportCmd() *cobra.Command {
	var (
		campaignID int64
		name       string
		start      string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a content calendar into a campaign as draft posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (campaignID == 0) == (name == "") {
				return errors.New("set exactly one of --campaign or --name")
			}

			calendar, err := readCalendar(args[0])
			if err != nil {
				return err
			}
			if start != "" {
				calendar.StartDate = start
			}
			startDay, err := service.ParseImportDate(calendar.StartDate)
			if err != nil {
				return err
			}

			cfg := config.LoadConfig()
			slog.SetDefault(app.NewLogger(cfg))

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if name != "" {
				campaign, err := a.Campaigns.Create(cmd.Context(), newImportCampaign(name, calendar))
				if err != nil {
					return err
				}
				campaignID = campaign.ID
			}

			result, err := a.Posts.ImportCampaign(cmd.Context(), campaignID, calendar.Posts, startDay)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().Int64Var(&campaignID, "campaign", 0, "existing campaign id")
	cmd.Flags().StringVar(&name, "name", "", "create a campaign with this name")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default today)")
	return cmd
}

// readCalendar accepts either a bare array of posts or an object with
// start_date and posts.
func readCalendar(path string) (transfer.CampaignImport, error) {
	var calendar transfer.CampaignImport

	raw, err := os.ReadFile(path)
	if err != nil {
		return calendar, fmt.Errorf("failed to read calendar: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &calendar.Posts)
	} else {
		err = json.Unmarshal(trimmed, &calendar)
	}
	if err != nil {
		return calendar, fmt.Errorf("failed to parse calendar %s: %w", path, err)
	}
	if len(calendar.Posts) == 0 {
		return calendar, fmt.Errorf("calendar %s has no posts", path)
	}
	return calendar, nil
}

// newImportCampaign spans the campaign over the days the calendar covers.
func newImportCampaign(name string, calendar transfer.CampaignImport) *transfer.CampaignCreation {
	startDay, _ := service.ParseImportDate(calendar.StartDate)
	if startDay.IsZero() {
		return &transfer.CampaignCreation{Name: name}
	}

	last := 0
	for _, entry := range calendar.Posts {
		if entry.ScheduleDays > last {
			last = entry.ScheduleDays
		}
	}
	return &transfer.CampaignCreation{
		Name:      name,
		StartDate: startDay.Format("2006-01-02"),
		EndDate:   startDay.AddDate(0, 0, last).Format("2006-01-02"),
	}
}
