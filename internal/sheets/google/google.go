package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fundbook/internal/core"
	ports "fundbook/internal/sheets"
)

type Client struct {
	svc                *gsheet.Service
	spreadsheetID      string
	contributionsSheet string
	withdrawalsSheet   string
}

// Ensure interface conformance
var _ ports.SnapshotWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_CONTRIBUTIONS_SHEET_NAME (default
// "Contributions"), GOOGLE_WITHDRAWALS_SHEET_NAME (default "Withdrawals").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	contributionsSheet := strings.TrimSpace(os.Getenv("GOOGLE_CONTRIBUTIONS_SHEET_NAME"))
	if contributionsSheet == "" {
		contributionsSheet = "Contributions"
	}
	withdrawalsSheet := strings.TrimSpace(os.Getenv("GOOGLE_WITHDRAWALS_SHEET_NAME"))
	if withdrawalsSheet == "" {
		withdrawalsSheet = "Withdrawals"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		contributionsSheet: contributionsSheet,
		withdrawalsSheet:   withdrawalsSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// WriteContribution upserts one contribution row keyed by id in column A.
func (c *Client) WriteContribution(ctx context.Context, contribution *core.Contribution) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		contribution.ID,
		contribution.Name,
		contribution.Promised.Rupees(),
		contribution.TotalPaid().Rupees(),
		contribution.Remaining().Rupees(),
		len(contribution.Installments),
		contribution.Version,
		time.Now().UTC().Format(time.RFC3339),
	}
	return c.upsertRow(ctx, c.contributionsSheet, contribution.ID, row, "H")
}

// WriteWithdrawalAccount upserts one account row keyed by id in column A.
func (c *Client) WriteWithdrawalAccount(ctx context.Context, account *core.WithdrawalAccount) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		account.ID,
		account.Name,
		account.TotalWithdrawn().Rupees(),
		account.TotalUsed().Rupees(),
		len(account.Entries),
		len(account.Usages),
		account.Version,
		time.Now().UTC().Format(time.RFC3339),
	}
	return c.upsertRow(ctx, c.withdrawalsSheet, account.ID, row, "H")
}

// upsertRow finds the row whose column A holds id and updates it, or appends
// a new row after the existing ones.
func (c *Client) upsertRow(ctx context.Context, sheetName, id string, row []any, lastCol string) (string, error) {
	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheetName, err)
	}

	targetRow := 0
	for i, existing := range resp.Values {
		if len(existing) > 0 && strings.TrimSpace(fmt.Sprint(existing[0])) == id {
			targetRow = i + 1
			break
		}
	}
	if targetRow == 0 {
		targetRow = len(resp.Values) + 1
	}

	dataRange := fmt.Sprintf("%s!A%d:%s%d", sheetName, targetRow, lastCol, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}
