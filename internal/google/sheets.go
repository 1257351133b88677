package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"soulfriend/internal/model"
)

const weeklySheetName = "WeeklyStats"

// WeeklyRow is one owner's line of the weekly report sheet.
type WeeklyRow struct {
	OwnerID   int64
	Name      string
	WeekStart string // YYYY-MM-DD
	Stats     model.WeeklyStats
	Badge     string
}

// SheetsService pushes weekly stats to a Google spreadsheet using a
// service-account credential.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewSheetsService reads the service-account JSON and builds the Sheets
// client.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// AppendWeeklyStats appends one row per owner to the weekly sheet.
func (s *SheetsService) AppendWeeklyStats(ctx context.Context, rows []WeeklyRow) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(rows))
	for i := range rows {
		values = append(values, weeklyRowValues(&rows[i]))
	}

	_, err := s.srv.Spreadsheets.Values.Append(
		s.spreadsheetID,
		weeklySheetName+"!A:H",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append weekly stats: %w", err)
	}

	s.logger.Info().Int("rows", len(rows)).Msg("weekly stats pushed to sheet")
	return nil
}

func weeklyRowValues(r *WeeklyRow) []interface{} {
	return []interface{}{
		r.OwnerID,
		r.Name,
		r.WeekStart,
		r.Stats.GoalsCompleted,
		r.Stats.HabitsCompleted,
		r.Stats.TotalGoals + r.Stats.TotalHabits,
		fmt.Sprintf("%.1f%%", r.Stats.CompletionRate()),
		r.Badge,
	}
}

// WeekStart returns the Monday of the week containing t, as YYYY-MM-DD.
func WeekStart(t time.Time) string {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday).Format("2006-01-02")
}
