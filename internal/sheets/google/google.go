package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/settings"
	ports "budgetcare/internal/sheets"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	expensesSheet   string
	categoriesSheet string
	goalsSheet      string
	profilesSheet   string
	now             func() time.Time
}

// Ensure interface conformance
var (
	_ ports.ExpenseWriter  = (*Client)(nil)
	_ ports.ExpenseLister  = (*Client)(nil)
	_ ports.ExpenseEditor  = (*Client)(nil)
	_ ports.TaxonomyReader = (*Client)(nil)
	_ ports.GoalStore      = (*Client)(nil)
	_ ports.ProfileStore   = (*Client)(nil)
)

// Config names the spreadsheet and its tabs.
type Config struct {
	SpreadsheetID   string
	ExpensesSheet   string
	CategoriesSheet string
	GoalsSheet      string
	ProfilesSheet   string
}

func (c Config) withDefaults() Config {
	if c.ExpensesSheet == "" {
		c.ExpensesSheet = "Expenses"
	}
	if c.CategoriesSheet == "" {
		c.CategoriesSheet = "Categories"
	}
	if c.GoalsSheet == "" {
		c.GoalsSheet = "Goals"
	}
	if c.ProfilesSheet == "" {
		c.ProfilesSheet = "Profiles"
	}
	return c
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	cfg = cfg.withDefaults()
	return &Client{
		svc:             svc,
		spreadsheetID:   cfg.SpreadsheetID,
		expensesSheet:   cfg.ExpensesSheet,
		categoriesSheet: cfg.CategoriesSheet,
		goalsSheet:      cfg.GoalsSheet,
		profilesSheet:   cfg.ProfilesSheet,
		now:             time.Now,
	}, nil
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional tab names: GOOGLE_SHEET_NAME (default "Expenses"),
// GOOGLE_CATEGORIES_SHEET_NAME, GOOGLE_GOALS_SHEET_NAME,
// GOOGLE_PROFILES_SHEET_NAME.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ExpensesSheet:   strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CategoriesSheet: strings.TrimSpace(os.Getenv("GOOGLE_CATEGORIES_SHEET_NAME")),
		GoalsSheet:      strings.TrimSpace(os.Getenv("GOOGLE_GOALS_SHEET_NAME")),
		ProfilesSheet:   strings.TrimSpace(os.Getenv("GOOGLE_PROFILES_SHEET_NAME")),
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, cfg)
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ready() error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return nil
}

// readRows returns every row of rng as trimmed strings.
func (c *Client) readRows(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

// writeRow overwrites one row starting at column A. rowNum is 1-based.
func (c *Client) writeRow(ctx context.Context, sheet string, rowNum int, values []any) (string, error) {
	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, rowNum, columnName(len(values)), rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// upsertRow rewrites the first matching row or appends a new one. An empty
// tab gets the header in row 1 first.
func (c *Client) upsertRow(ctx context.Context, sheet string, header []string, match func([]string) bool, values []any) (string, error) {
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:%s", sheet, columnName(len(header))))
	if err != nil {
		return "", err
	}
	rowNum := findRow(rows, match)
	if rowNum < 0 {
		if len(rows) == 0 {
			hdr := make([]any, len(header))
			for i, h := range header {
				hdr[i] = h
			}
			if _, err := c.writeRow(ctx, sheet, 1, hdr); err != nil {
				return "", err
			}
			rows = append(rows, header)
		}
		rowNum = len(rows) + 1
	}
	return c.writeRow(ctx, sheet, rowNum, values)
}

// Append implements ports.ExpenseWriter
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	ids, err := c.AppendBill(ctx, []core.Expense{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendBill writes all items below the last used row with a single values
// update, so a bill lands in the sheet whole or not at all.
func (c *Client) AppendBill(ctx context.Context, items []core.Expense) ([]string, error) {
	for _, e := range items {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}
	if err := c.ready(); err != nil {
		return nil, err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:%s", c.expensesSheet, columnName(expenseColumns)))
	if err != nil {
		return nil, err
	}

	var values [][]any
	if len(rows) == 0 {
		hdr := make([]any, len(ExpenseHeader))
		for i, h := range ExpenseHeader {
			hdr[i] = h
		}
		values = append(values, hdr)
	}
	ids := make([]string, len(items))
	for i, e := range items {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = c.now()
		}
		ids[i] = e.ID
		values = append(values, expenseRow(e))
	}

	first := len(rows) + 1
	if len(rows) == 0 {
		first = 1
	}
	last := first + len(values) - 1
	rng := fmt.Sprintf("%s!A%d:%s%d", c.expensesSheet, first, columnName(expenseColumns), last)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Bill written to sheet", log.FieldItems, len(items), log.FieldSheetsRef, rng)
	return ids, nil
}

// UpsertExpense writes e to the row carrying its ID, appending when absent.
// The sync worker uses it to mirror SQLite rows.
func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	ref, err := c.upsertRow(ctx, c.expensesSheet, ExpenseHeader, matchID(e.ID), expenseRow(e))
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Expense written to sheet", log.FieldExpenseID, e.ID, log.FieldSheetsRef, ref)
	return ref, nil
}

// ListExpenses implements ports.ExpenseLister
func (c *Client) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:%s", c.expensesSheet, columnName(expenseColumns)))
	if err != nil {
		return nil, err
	}
	return parseExpenseRows(rows, userID), nil
}

// UpdateExpense implements ports.ExpenseEditor
func (c *Client) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:%s", c.expensesSheet, columnName(expenseColumns)))
	if err != nil {
		return err
	}
	rowNum := findRow(rows, matchLive(e.UserID, e.ID))
	if rowNum < 0 {
		return core.ErrNotFound
	}
	old := rows[rowNum-1]
	e.ReceiptID = safeGet(old, colReceipt)
	e.CreatedAt, _ = time.Parse(time.RFC3339, safeGet(old, colCreated))
	if e.InputType == "" {
		e.InputType = core.InputType(safeGet(old, colInput))
	}
	_, err = c.writeRow(ctx, c.expensesSheet, rowNum, expenseRow(e))
	return err
}

// DeleteExpense implements ports.ExpenseEditor by stamping the Deleted
// column; the row stays for auditing.
func (c *Client) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:%s", c.expensesSheet, columnName(expenseColumns)))
	if err != nil {
		return err
	}
	rowNum := findRow(rows, matchLive(userID, id))
	if rowNum < 0 {
		return core.ErrNotFound
	}
	row := rows[rowNum-1]
	values := make([]any, expenseColumns)
	for i := range values {
		values[i] = safeGet(row, i)
	}
	values[colDeleted] = c.now().UTC().Format(time.RFC3339)
	_, err = c.writeRow(ctx, c.expensesSheet, rowNum, values)
	return err
}

// Categories implements ports.TaxonomyReader. An empty tab yields the
// built-in list.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A2:A", c.categoriesSheet))
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	cats := parseColumn(rows)
	if len(cats) == 0 {
		return append([]string(nil), core.Categories...), nil
	}
	return cats, nil
}

// GetGoal implements ports.GoalStore
func (c *Client) GetGoal(ctx context.Context, userID, month string) (core.Goal, error) {
	if err := c.ready(); err != nil {
		return core.Goal{}, err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:D", c.goalsSheet))
	if err != nil {
		return core.Goal{}, err
	}
	rowNum := findRow(rows, matchPair(userID, month))
	if rowNum < 0 {
		return core.Goal{}, core.ErrNotFound
	}
	row := rows[rowNum-1]
	updated, _ := time.Parse(time.RFC3339, safeGet(row, 3))
	return core.Goal{UserID: userID, Month: month, Description: safeGet(row, 2), UpdatedAt: updated}, nil
}

// UpsertGoal implements ports.GoalStore
func (c *Client) UpsertGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	values := []any{g.UserID, g.Month, g.Description, c.now().UTC().Format(time.RFC3339)}
	_, err := c.upsertRow(ctx, c.goalsSheet, goalHeader, matchPair(g.UserID, g.Month), values)
	return err
}

// LoadProfile implements settings.Repository. The profile is stored as a
// JSON document in column B.
func (c *Client) LoadProfile(ctx context.Context, userID string) (settings.Profile, error) {
	if err := c.ready(); err != nil {
		return settings.Profile{}, err
	}
	rows, err := c.readRows(ctx, fmt.Sprintf("%s!A:C", c.profilesSheet))
	if err != nil {
		return settings.Profile{}, err
	}
	rowNum := findRow(rows, matchID(userID))
	if rowNum < 0 {
		return settings.Profile{}, core.ErrNotFound
	}
	var p settings.Profile
	if err := json.Unmarshal([]byte(safeGet(rows[rowNum-1], 1)), &p); err != nil {
		return settings.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p.UserID = userID
	return p, nil
}

// SaveProfile implements settings.Repository
func (c *Client) SaveProfile(ctx context.Context, p settings.Profile) error {
	if p.UserID == "" {
		return core.ErrEmptyUserID
	}
	if err := c.ready(); err != nil {
		return err
	}
	p.Dirty = false
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	values := []any{p.UserID, string(doc), c.now().UTC().Format(time.RFC3339)}
	_, err = c.upsertRow(ctx, c.profilesSheet, profileHeader, matchID(p.UserID), values)
	return err
}
