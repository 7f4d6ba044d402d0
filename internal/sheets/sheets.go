// Package sheets implements the lead and contact store on a Google
// Spreadsheet: one tab each for leads, contacts and the two run logs.
// Every write is a single append call, so concurrent writers never race
// on a read-modify-write.
package sheets

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Tabs names the worksheet used for each table. Tab names are case-sensitive.
type Tabs struct {
	Leads         string
	Contacts      string
	IngestLog     string
	EnrichmentLog string
}

// TabsFromConfig reads tab names from the sheets config section.
func TabsFromConfig(c config.SheetsConfig) Tabs {
	return Tabs{
		Leads:         c.LeadsTab,
		Contacts:      c.ContactsTab,
		IngestLog:     c.IngestLogTab,
		EnrichmentLog: c.EnrichmentLogTab,
	}
}

// Store implements store.Store on a spreadsheet.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
	tabs          Tabs
	guard         *resilience.Guard
	log           *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store for spreadsheetID. Extra client options are appended
// after the credentials, so tests can point the client at a fake server.
func New(ctx context.Context, cfg config.SheetsConfig, guard *resilience.Guard, opts ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}
	var all []option.ClientOption
	if creds, err := credentials(cfg.ServiceAccountJSON); err != nil {
		return nil, err
	} else if creds != nil {
		all = append(all, creds)
	}
	all = append(all, opts...)

	svc, err := gsheets.NewService(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tabs:          TabsFromConfig(cfg),
		guard:         guard,
		log:           zap.L().With(zap.String("component", "sheets")),
	}, nil
}

// credentials accepts the service account as inline JSON or a file path.
func credentials(sa string) (option.ClientOption, error) {
	sa = strings.TrimSpace(sa)
	switch {
	case sa == "":
		return nil, nil
	case strings.HasPrefix(sa, "{"):
		return option.WithCredentialsJSON([]byte(sa)), nil
	default:
		raw, err := os.ReadFile(sa)
		if err != nil {
			return nil, eris.Wrapf(err, "sheets: read service account file %s", sa)
		}
		return option.WithCredentialsJSON(raw), nil
	}
}

func (s *Store) tabHeaders() []struct {
	name    string
	headers []string
} {
	return []struct {
		name    string
		headers []string
	}{
		{s.tabs.Leads, leadHeaders},
		{s.tabs.Contacts, contactHeaders},
		{s.tabs.IngestLog, ingestLogHeaders},
		{s.tabs.EnrichmentLog, enrichmentLogHeaders},
	}
}

// Migrate creates any missing tab and writes its header row. Existing tabs
// are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	ss, err := call(ctx, s, "get spreadsheet", func(ctx context.Context) (*gsheets.Spreadsheet, error) {
		return s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	})
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var reqs []*gsheets.Request
	var created []int
	tabs := s.tabHeaders()
	for i, t := range tabs {
		if existing[t.name] {
			continue
		}
		reqs = append(reqs, &gsheets.Request{AddSheet: &gsheets.AddSheetRequest{
			Properties: &gsheets.SheetProperties{Title: t.name},
		}})
		created = append(created, i)
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err = call(ctx, s, "add tabs", func(ctx context.Context) (*gsheets.BatchUpdateSpreadsheetResponse, error) {
		return s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	})
	if err != nil {
		return err
	}

	for _, i := range created {
		t := tabs[i]
		header := make([]any, len(t.headers))
		for j, h := range t.headers {
			header[j] = h
		}
		_, err := call(ctx, s, "write header", func(ctx context.Context) (*gsheets.UpdateValuesResponse, error) {
			return s.svc.Spreadsheets.Values.Update(s.spreadsheetID, t.name+"!A1", &gsheets.ValueRange{Values: [][]any{header}}).
				ValueInputOption("RAW").Context(ctx).Do()
		})
		if err != nil {
			return err
		}
		s.log.Info("created worksheet", zap.String("tab", t.name), zap.Int("columns", len(t.headers)))
	}
	return nil
}

// Ping checks the spreadsheet is reachable with the configured credentials.
func (s *Store) Ping(ctx context.Context) error {
	_, err := call(ctx, s, "ping", func(ctx context.Context) (*gsheets.Spreadsheet, error) {
		return s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	})
	return err
}

func (s *Store) Close() error { return nil }

func (s *Store) ReadLeads(ctx context.Context) ([]model.Lead, error) {
	recs, err := s.read(ctx, s.tabs.Leads)
	if err != nil {
		return nil, err
	}
	leads := make([]model.Lead, 0, len(recs))
	for _, r := range recs {
		if r["place_id"] == "" {
			continue
		}
		leads = append(leads, leadFromRecord(r))
	}
	return leads, nil
}

func (s *Store) ReadKnownLeadIDs(ctx context.Context) (model.IDSet, error) {
	recs, err := s.read(ctx, s.tabs.Leads)
	if err != nil {
		return nil, err
	}
	ids := make(model.IDSet, len(recs))
	for _, r := range recs {
		ids.Add(r["place_id"])
	}
	return ids, nil
}

func (s *Store) AppendLeads(ctx context.Context, leads []model.Lead) error {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, leadRow(l))
	}
	return s.append(ctx, s.tabs.Leads, rows)
}

func (s *Store) ReadContacts(ctx context.Context) ([]model.ContactRow, error) {
	recs, err := s.read(ctx, s.tabs.Contacts)
	if err != nil {
		return nil, err
	}
	out := make([]model.ContactRow, 0, len(recs))
	for _, r := range recs {
		if r["place_id"] == "" {
			continue
		}
		out = append(out, contactFromRecord(r))
	}
	return out, nil
}

func (s *Store) ReadEnrichedIDs(ctx context.Context) (model.IDSet, error) {
	rows, err := s.ReadContacts(ctx)
	if err != nil {
		return nil, err
	}
	return model.EnrichedIDs(rows), nil
}

func (s *Store) ReadRevealedKeys(ctx context.Context) (model.IDSet, error) {
	rows, err := s.ReadContacts(ctx)
	if err != nil {
		return nil, err
	}
	return model.RevealedKeys(rows), nil
}

func (s *Store) AppendContacts(ctx context.Context, rows []model.ContactRow) error {
	vals := make([][]any, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, contactRow(r))
	}
	return s.append(ctx, s.tabs.Contacts, vals)
}

func (s *Store) AppendIngestLog(ctx context.Context, sum *model.IngestSummary) error {
	r, err := ingestLogRow(sum)
	if err != nil {
		return err
	}
	return s.append(ctx, s.tabs.IngestLog, [][]any{r})
}

func (s *Store) AppendEnrichmentLog(ctx context.Context, sum *model.EnrichmentSummary) error {
	r, err := enrichmentLogRow(sum)
	if err != nil {
		return err
	}
	return s.append(ctx, s.tabs.EnrichmentLog, [][]any{r})
}

// ListRunLogs reads both log tabs and returns the newest runs first.
func (s *Store) ListRunLogs(ctx context.Context, filter store.RunLogFilter) ([]model.RunLog, error) {
	sources := []struct {
		kind model.RunKind
		tab  string
	}{
		{model.RunKindIngest, s.tabs.IngestLog},
		{model.RunKindEnrichment, s.tabs.EnrichmentLog},
	}

	var logs []model.RunLog
	for _, src := range sources {
		if filter.Kind != "" && filter.Kind != src.kind {
			continue
		}
		recs, err := s.read(ctx, src.tab)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			rl := runLogFromRecord(src.kind, r)
			if rl.RunID == "" || (filter.Status != "" && rl.Status != filter.Status) {
				continue
			}
			logs = append(logs, rl)
		}
	}

	slices.SortStableFunc(logs, func(a, b model.RunLog) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultRunLogLimit
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) read(ctx context.Context, tab string) ([]record, error) {
	vr, err := call(ctx, s, "read "+tab, func(ctx context.Context) (*gsheets.ValueRange, error) {
		return s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tab).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return records(vr.Values), nil
}

// append writes rows with one API call. Appends are not retried: a
// timed-out append may still have landed, and a retry would duplicate it.
func (s *Store) append(ctx context.Context, tab string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A1", &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(classify(err), "sheets: append %d rows to %s", len(rows), tab)
	}
	s.log.Debug("appended rows", zap.String("tab", tab), zap.Int("rows", len(rows)))
	return nil
}

// call runs an idempotent request under the store's guard.
func call[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := resilience.Call(ctx, s.guard, op, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return v, classify(err)
	})
	if err != nil {
		return v, eris.Wrapf(err, "sheets: %s", op)
	}
	return v, nil
}

// classify marks rate limits and server errors from the Sheets API as
// transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError) {
		return resilience.NewTransientError(err, gerr.Code)
	}
	return err
}
