// Package source discovers and parses JSONL ledger exports.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/theirongolddev/fincast/internal/budget"
	"github.com/theirongolddev/fincast/internal/model"
)

// importNamespace seeds deterministic IDs for transactions exported without one,
// so re-importing a file yields the same rows.
var importNamespace = uuid.MustParse("6f1c3f5e-8a43-4f4e-9b1a-2a64f1d2c7b0")

// ParseResult holds the output of parsing a single export file.
type ParseResult struct {
	Transactions []model.Transaction
	Budgets      []model.Budget
	// StatedStatus holds the IDs of budgets whose line set a status. The
	// others default to draft and must not override a stored lifecycle.
	StatedStatus map[string]bool
	ParseErrors  int
	Err          error
}

// ParseFile reads a JSONL export. Lines are routed by their top-level "type":
//   - "transaction" → ledger row
//   - "budget"      → budget configuration (end date derived when absent)
//   - "allocation"  → attached to a budget defined earlier in the file
//   - everything else → skip
//
// Malformed or invalid lines are counted in ParseErrors and skipped.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	var (
		res     ParseResult
		budgets = make(map[string]int)
		lineNo  int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		switch extractTopLevelType(line) {
		case "transaction":
			var raw RawTransaction
			if err := json.Unmarshal(line, &raw); err != nil {
				res.ParseErrors++
				continue
			}
			tx, err := raw.toModel(df, lineNo)
			if err != nil {
				res.ParseErrors++
				continue
			}
			res.Transactions = append(res.Transactions, tx)

		case "budget":
			var raw RawBudget
			if err := json.Unmarshal(line, &raw); err != nil {
				res.ParseErrors++
				continue
			}
			b, err := raw.toModel()
			if err != nil {
				res.ParseErrors++
				continue
			}
			if raw.Status != "" {
				if res.StatedStatus == nil {
					res.StatedStatus = make(map[string]bool)
				}
				res.StatedStatus[b.ID] = true
			}
			budgets[b.ID] = len(res.Budgets)
			res.Budgets = append(res.Budgets, b)

		case "allocation":
			var raw RawAllocation
			if err := json.Unmarshal(line, &raw); err != nil {
				res.ParseErrors++
				continue
			}
			i, ok := budgets[raw.BudgetID]
			if !ok || raw.CategoryID == "" || raw.Amount.IsNegative() {
				res.ParseErrors++
				continue
			}
			res.Budgets[i].Allocations = append(res.Budgets[i].Allocations, model.Allocation{
				BudgetID:        raw.BudgetID,
				CategoryID:      raw.CategoryID,
				AllocatedAmount: raw.Amount,
				AlertAt80:       raw.AlertAt80,
				AlertAt100:      raw.AlertAt100,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		res.Err = err
		return res
	}

	// Allocations can break validation (duplicates), so check budgets last.
	valid := res.Budgets[:0]
	for _, b := range res.Budgets {
		if err := budget.Validate(b); err != nil {
			res.ParseErrors++
			continue
		}
		valid = append(valid, b)
	}
	res.Budgets = valid
	return res
}

func (r RawTransaction) toModel(df DiscoveredFile, lineNo int) (model.Transaction, error) {
	kind := model.TxKind(strings.ToLower(r.Kind))
	if kind != model.Income && kind != model.Expense {
		return model.Transaction{}, fmt.Errorf("unknown kind %q", r.Kind)
	}
	if r.Amount.IsNegative() {
		return model.Transaction{}, fmt.Errorf("negative amount %s", r.Amount)
	}
	on, err := model.ParseDate(r.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	status := model.Completed
	if r.Status != "" {
		status = model.TxStatus(strings.ToLower(r.Status))
		switch status {
		case model.Pending, model.Completed, model.Cancelled, model.Refunded:
		default:
			return model.Transaction{}, fmt.Errorf("unknown status %q", r.Status)
		}
	}

	id := r.ID
	if id == "" {
		id = uuid.NewSHA1(importNamespace, []byte(fmt.Sprintf("%s:%d", df.Path, lineNo))).String()
	}

	return model.Transaction{
		ID:         id,
		Kind:       kind,
		Amount:     r.Amount,
		Currency:   strings.ToUpper(r.Currency),
		OccurredOn: on,
		Status:     status,
		CategoryID: r.CategoryID,
	}, nil
}

func (r RawBudget) toModel() (model.Budget, error) {
	start, err := model.ParseDate(r.StartDate)
	if err != nil {
		return model.Budget{}, err
	}
	b := model.Budget{
		ID:          r.ID,
		Name:        r.Name,
		PeriodType:  model.PeriodType(strings.ToLower(r.PeriodType)),
		StartDate:   start,
		TotalAmount: r.Total,
		Status:      model.BudgetStatus(strings.ToLower(r.Status)),
	}
	if r.EndDate != "" {
		if b.EndDate, err = model.ParseDate(r.EndDate); err != nil {
			return model.Budget{}, err
		}
	}
	if b.Name == "" {
		b.Name = b.ID
	}
	if err := budget.Normalize(&b); err != nil {
		return model.Budget{}, err
	}
	return b, nil
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line without
// decoding it. Nested "type" keys are ignored by tracking brace depth and
// string boundaries.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				if val, isKey := classifyType(line, i+len(typeKey)); isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key and returns its value
// when it is one of the routed line types. isKey=false means "type" appeared
// as a value and scanning should continue.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case "transaction", "budget", "allocation":
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}
