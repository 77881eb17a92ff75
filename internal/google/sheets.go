// Package google appends journal rows to a shared Google Sheets changelog.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"kovorka/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const changeLogRange = "ChangeLog!A:H"

// SheetsSink writes change entries to a spreadsheet, one row per change.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsSink(credentialsFile, spreadsheetID string) (*SheetsSink, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsSink{service: srv, spreadsheetID: spreadsheetID}, nil
}

// TestConnection reads the header cell to verify access to the spreadsheet.
func (s *SheetsSink) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "ChangeLog!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the service account email from credentials,
// for sharing instructions in logs.
func (s *SheetsSink) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendChange appends one change entry as a row at the end of the log sheet.
func (s *SheetsSink) AppendChange(ctx context.Context, entry *models.ChangeEntry) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{rowForEntry(entry)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, changeLogRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append change %d: %v", entry.ID, err)
	}
	return nil
}

func rowForEntry(entry *models.ChangeEntry) []interface{} {
	return []interface{}{
		entry.ID,
		entry.BookingID,
		entry.ChangeType,
		formatOptionalTime(entry.OldStart),
		formatOptionalTime(entry.OldEnd),
		formatOptionalTime(entry.NewStart),
		formatOptionalTime(entry.NewEnd),
		entry.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
