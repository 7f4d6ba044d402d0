package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const testSpreadsheetID = "sheet-123"

// fakeSheets is an in-memory stand-in for the Sheets v4 REST API, covering
// the calls the store makes.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     map[string][][]any
	order    []string
	calls    map[string]int
	failures map[string][]int // op -> status codes to return before succeeding
}

func newFakeSheets(tabs ...string) *fakeSheets {
	f := &fakeSheets{
		tabs:     map[string][][]any{},
		calls:    map[string]int{},
		failures: map[string][]int{},
	}
	for _, t := range tabs {
		f.addTab(t)
	}
	return f
}

func (f *fakeSheets) addTab(name string) {
	if _, ok := f.tabs[name]; ok {
		return
	}
	f.tabs[name] = nil
	f.order = append(f.order, name)
}

func (f *fakeSheets) failNext(op string, codes ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], codes...)
}

func (f *fakeSheets) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSheets) rows(tab string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tabs[tab]
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheetID
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	op, rng := "", ""
	switch {
	case rest == "" && r.Method == http.MethodGet:
		op = "get"
	case rest == ":batchUpdate":
		op = "batchUpdate"
	case strings.HasPrefix(rest, "/values/") && strings.HasSuffix(rest, ":append"):
		op, rng = "append", strings.TrimSuffix(strings.TrimPrefix(rest, "/values/"), ":append")
	case strings.HasPrefix(rest, "/values/") && r.Method == http.MethodPut:
		op, rng = "update", strings.TrimPrefix(rest, "/values/")
	case strings.HasPrefix(rest, "/values/"):
		op, rng = "values", strings.TrimPrefix(rest, "/values/")
	default:
		http.NotFound(w, r)
		return
	}
	f.calls[op]++

	if codes := f.failures[op]; len(codes) > 0 {
		f.failures[op] = codes[1:]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(codes[0])
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"injected"}}`, codes[0])
		return
	}

	tab, _, _ := strings.Cut(rng, "!")
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)

	switch op {
	case "get":
		sheets := make([]map[string]any, 0, len(f.order))
		for _, t := range f.order {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = enc.Encode(map[string]any{"spreadsheetId": testSpreadsheetID, "sheets": sheets})
	case "batchUpdate":
		var req struct {
			Requests []struct {
				AddSheet *struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.addTab(rq.AddSheet.Properties.Title)
			}
		}
		_ = enc.Encode(map[string]any{"spreadsheetId": testSpreadsheetID})
	case "values":
		if _, ok := f.tabs[tab]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range"}}`))
			return
		}
		_ = enc.Encode(map[string]any{"range": tab, "values": f.tabs[tab]})
	case "update", "append":
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		if op == "update" {
			if len(f.tabs[tab]) == 0 {
				f.tabs[tab] = vr.Values
			} else {
				f.tabs[tab][0] = vr.Values[0]
			}
		} else {
			f.tabs[tab] = append(f.tabs[tab], vr.Values...)
		}
		_ = enc.Encode(map[string]any{"spreadsheetId": testSpreadsheetID})
	}
}

func testConfig() config.SheetsConfig {
	return config.SheetsConfig{
		SpreadsheetID:    testSpreadsheetID,
		LeadsTab:         "Leads",
		ContactsTab:      "Contacts",
		IngestLogTab:     "Run_Log",
		EnrichmentLogTab: "Enrichment_Log",
	}
}

func fastGuard() *resilience.Guard {
	return resilience.NewGuard("sheets",
		resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		resilience.CircuitBreakerConfig{FailureThreshold: 10},
	)
}

// newTestStore returns a migrated Store backed by a fake server.
func newTestStore(t *testing.T) (*Store, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), testConfig(), fastGuard(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s, fake
}
