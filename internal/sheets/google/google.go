package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"budzet/internal/core"
	ports "budzet/internal/sheets"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// JournalHeader names the columns written by AppendJournal.
var JournalHeader = []string{"Event", "Time", "Kind", "Bank", "Group", "Category", "Loan", "Amount", "Description"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	journalSheet  string
}

var (
	_ ports.JournalWriter = (*Client)(nil)
	_ ports.JournalReader = (*Client)(nil)
)

// Options selects the spreadsheet and the credentials. Service account
// credentials win over an OAuth user token when both are set.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets journal ready", "sheet", sheetName(opts.SheetName))
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, journalSheet: sheetName(sheet)}
}

func sheetName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Journal"
	}
	return s
}

func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if opts.ServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case opts.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(opts.ServiceAccountJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials file", "path", file)
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case opts.OAuthClientFile != "" && opts.OAuthTokenFile != "":
		httpClient, err := oauthClient(ctx, opts.OAuthClientFile, opts.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user token", "token_file", opts.OAuthTokenFile)
		return []goption.ClientOption{goption.WithHTTPClient(httpClient)}, nil
	default:
		return nil, errors.New("missing sheets credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE)")
	}
}

// oauthClient builds a refreshing client from the token saved by oauth-init.
func oauthClient(ctx context.Context, clientFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("open oauth token: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

// newHTTPClientWithPooling is the transport under OAuth requests.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendJournal writes ev below the last journal row.
func (c *Client) AppendJournal(ctx context.Context, ev core.LedgerEvent) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if ev.ID == 0 {
		return "", errors.New("event has no id")
	}

	rng := fmt.Sprintf("%s!A:I", c.journalSheet)
	vr := &gsheet.ValueRange{Values: [][]any{journalRow(ev)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.journalSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// ListJournal reads every journal row, skipping the header and rows that do
// not parse.
func (c *Client) ListJournal(ctx context.Context) ([]core.LedgerEvent, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.journalSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]core.LedgerEvent, 0, len(resp.Values))
	for _, row := range resp.Values {
		ev, ok := parseJournalRow(toStrings(row))
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func journalRow(ev core.LedgerEvent) []any {
	return []any{
		ev.ID,
		ev.CreatedAt.UTC().Format(time.RFC3339),
		string(ev.Kind),
		ev.BankID,
		ev.GroupID,
		ev.CategoryID,
		ev.LoanID,
		ev.Amount.String(),
		ev.Description,
	}
}

func parseJournalRow(cols []string) (core.LedgerEvent, bool) {
	if len(cols) < 8 {
		return core.LedgerEvent{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return core.LedgerEvent{}, false
	}
	created, err := time.Parse(time.RFC3339, cols[1])
	if err != nil {
		return core.LedgerEvent{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[7], ",", "."))
	if err != nil {
		return core.LedgerEvent{}, false
	}
	ev := core.LedgerEvent{
		ID:         id,
		CreatedAt:  created,
		Kind:       core.EventKind(cols[2]),
		BankID:     parseID(cols[3]),
		GroupID:    parseID(cols[4]),
		CategoryID: parseID(cols[5]),
		LoanID:     parseID(cols[6]),
		Amount:     core.RoundMoney(amount),
		SyncStatus: core.SyncDone,
	}
	if len(cols) > 8 {
		ev.Description = cols[8]
	}
	return ev, true
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
