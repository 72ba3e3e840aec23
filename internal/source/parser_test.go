package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/model"
)

// writeExport creates a temp JSONL file and returns a DiscoveredFile for it.
func writeExport(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, Account: DefaultAccount}
}

func TestParseFile_Transactions(t *testing.T) {
	df := writeExport(t,
		`{"type":"transaction","id":"t1","kind":"income","amount":"1250.50","currency":"usd","date":"2024-03-01"}`,
		`{"type":"transaction","kind":"expense","amount":42,"date":"2024-03-02","status":"pending","category":"food"}`,
		`{"type":"transaction","kind":"expense","amount":"-5","date":"2024-03-02"}`,
		`{"type":"transaction","kind":"transfer","amount":"5","date":"2024-03-02"}`,
		`{"type":"transaction","kind":"income","amount":"5","date":"03/02/2024"}`,
		`not json`,
		`{"type":"note","text":"ignored"}`,
	)

	res := ParseFile(df)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("Transactions = %d, want 2", len(res.Transactions))
	}
	if res.ParseErrors != 3 {
		t.Errorf("ParseErrors = %d, want 3", res.ParseErrors)
	}

	first := res.Transactions[0]
	if first.ID != "t1" || first.Status != model.Completed || first.Currency != "USD" {
		t.Errorf("first = %+v", first)
	}
	if !first.Amount.Equal(decimal.RequireFromString("1250.5")) {
		t.Errorf("amount = %s", first.Amount)
	}

	second := res.Transactions[1]
	if second.ID == "" || second.Status != model.Pending || second.CategoryID != "food" {
		t.Errorf("second = %+v", second)
	}
}

func TestParseFile_GeneratedIDsAreStable(t *testing.T) {
	df := writeExport(t, `{"type":"transaction","kind":"income","amount":"1","date":"2024-01-01"}`)
	a, b := ParseFile(df), ParseFile(df)
	if a.Transactions[0].ID != b.Transactions[0].ID {
		t.Fatalf("IDs differ across parses: %s vs %s", a.Transactions[0].ID, b.Transactions[0].ID)
	}
}

func TestParseFile_BudgetsAndAllocations(t *testing.T) {
	df := writeExport(t,
		`{"type":"budget","id":"q1","period":"quarterly","start":"2024-01-01","total":"900","status":"active"}`,
		`{"type":"allocation","budget_id":"q1","category":"food","amount":"600","alert_at_80":true}`,
		`{"type":"allocation","budget_id":"q1","category":"fun","amount":"300","alert_at_100":true}`,
		`{"type":"allocation","budget_id":"missing","category":"x","amount":"1"}`,
		`{"type":"budget","id":"dup","period":"monthly","start":"2024-01-01","total":"10"}`,
		`{"type":"allocation","budget_id":"dup","category":"a","amount":"5"}`,
		`{"type":"allocation","budget_id":"dup","category":"a","amount":"5"}`,
	)

	res := ParseFile(df)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(res.Budgets) != 1 {
		t.Fatalf("Budgets = %d, want 1", len(res.Budgets))
	}
	b := res.Budgets[0]
	if b.EndDate.Format("2006-01-02") != "2024-03-31" || b.Status != model.BudgetActive {
		t.Errorf("budget = %+v", b)
	}
	if len(b.Allocations) != 2 || !b.Allocations[0].AlertAt80 || !b.Allocations[1].AlertAt100 {
		t.Errorf("allocations = %+v", b.Allocations)
	}
	if res.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", res.ParseErrors)
	}
}

func TestExtractTopLevelType(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"type":"transaction","amount":"1"}`, "transaction"},
		{`{"meta":{"type":"budget"},"type":"allocation"}`, "allocation"},
		{`{"note":"type","type": "budget"}`, "budget"},
		{`{"type":"other"}`, ""},
		{`{"amount":"1"}`, ""},
	}
	for _, tt := range tests {
		if got := extractTopLevelType([]byte(tt.line)); got != tt.want {
			t.Errorf("extractTopLevelType(%s) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("root.jsonl")
	mustWrite("checking/2024.jsonl")
	mustWrite("checking/notes.txt")
	mustWrite("savings/2024.jsonl")
	mustWrite(".hidden/skip.jsonl")

	files, err := ScanDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %+v", files)
	}
	if CountAccounts(files) != 3 {
		t.Fatalf("accounts = %d", CountAccounts(files))
	}

	none, err := ScanDir(filepath.Join(root, "absent"))
	if err != nil || none != nil {
		t.Fatalf("missing dir: %v %v", none, err)
	}
}
