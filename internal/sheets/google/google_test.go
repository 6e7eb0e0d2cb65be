package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"fintrack/internal/core"
)

// fakeSheet serves the three Values endpoints the client uses.
type fakeSheet struct {
	mu   sync.Mutex
	rows map[int][]any
	ops  []string
}

var rowRangePattern = regexp.MustCompile(`^Transactions!A(\d+):I(\d+)(:clear)?$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}

	if r.Method == http.MethodGet && rng == "Transactions!A:A" {
		f.ops = append(f.ops, "get")
		last := 0
		for n := range f.rows {
			if n > last {
				last = n
			}
		}
		values := make([][]any, last)
		for i := range values {
			values[i] = []any{}
			if row := f.rows[i+1]; len(row) > 0 {
				values[i] = []any{row[0]}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
		return
	}

	m := rowRangePattern.FindStringSubmatch(rng)
	if m == nil {
		http.Error(w, "unexpected range "+rng, http.StatusBadRequest)
		return
	}
	row, _ := strconv.Atoi(m[1])

	switch {
	case r.Method == http.MethodPost && m[3] == ":clear":
		f.ops = append(f.ops, "clear:"+m[1])
		delete(f.rows, row)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.ops = append(f.ops, "update:"+m[1])
		f.rows[row] = body.Values[0]
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheet) row(n int) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[n]
}

func (f *fakeSheet) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

func (f *fakeSheet) opsSince(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops[n:]...)
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{rows: map[int][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", "Transactions",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func sampleTx(id, amount string) core.Transaction {
	return core.Transaction{
		ID:        id,
		UserID:    "u1",
		Kind:      core.KindIncome,
		Title:     "Salary",
		Amount:    decimal.RequireFromString(amount),
		Category:  "Salary",
		Date:      core.NewDate(2024, 1, 31),
		CreatedAt: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), " ", "Transactions"); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}
	_, err := New(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNew_CredentialsFileUnreadable(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", os.TempDir()+"/does-not-exist.json")
	_, err := New(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNew_CredentialsMalformed(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "{not json")
	_, err := New(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "parse service account credentials") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestClient_UpsertWritesHeaderThenRows(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, sampleTx("t1", "3000"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Transactions!A2:I2" {
		t.Errorf("ref = %q, want Transactions!A2:I2", ref)
	}
	if fake.row(1)[0] != "ID" {
		t.Errorf("header not written: %v", fake.row(1))
	}

	ref, err = c.Upsert(ctx, sampleTx("t2", "10.5"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Transactions!A3:I3" {
		t.Errorf("ref = %q, want Transactions!A3:I3", ref)
	}

	// Updating t1 rewrites row 2 in place.
	ref, err = c.Upsert(ctx, sampleTx("t1", "3100"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Transactions!A2:I2" {
		t.Errorf("ref = %q, want Transactions!A2:I2", ref)
	}
	if fake.row(2)[6] != "3100" {
		t.Errorf("amount cell = %v, want 3100", fake.row(2)[6])
	}
	if fake.row(2)[3] != "2024-01-31" || fake.row(2)[2] != "Income" {
		t.Errorf("row = %v", fake.row(2))
	}
}

func TestClient_UpsertKeepsFormulaTextLiteral(t *testing.T) {
	c, fake := newTestClient(t)

	tx := sampleTx("t1", "12")
	tx.Title = "=HYPERLINK(\"http://x.example\")"
	tx.Description = "=SUM(A1)"
	if _, err := c.Upsert(context.Background(), tx); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got := fake.row(2)[4]; got != "'=HYPERLINK(\"http://x.example\")" {
		t.Errorf("title cell = %v", got)
	}
	if got := fake.row(2)[7]; got != "'=SUM(A1)" {
		t.Errorf("description cell = %v, want '=SUM(A1)", got)
	}
}

func TestClient_Remove(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := c.Upsert(ctx, sampleTx(id, "1")); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}

	if err := c.Remove(ctx, core.KindIncome, "t2"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if fake.row(3) != nil {
		t.Error("row 3 should be cleared")
	}
	if fake.row(4)[0] != "t3" {
		t.Errorf("row 4 moved: %v", fake.row(4))
	}

	opsBefore := fake.opCount()
	if err := c.Remove(ctx, core.KindIncome, "unknown"); err != nil {
		t.Fatalf("Remove(unknown) error = %v", err)
	}
	for _, op := range fake.opsSince(opsBefore) {
		if strings.HasPrefix(op, "clear") {
			t.Errorf("unexpected clear for unknown id: %v", fake.opsSince(opsBefore))
		}
	}

	// A new transaction appends after the cleared slot.
	ref, err := c.Upsert(ctx, sampleTx("t4", "1"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Transactions!A5:I5" {
		t.Errorf("ref = %q, want Transactions!A5:I5", ref)
	}
}

func TestClient_UpsertRequiresID(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.Upsert(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
