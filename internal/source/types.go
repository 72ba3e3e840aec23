package source

import "github.com/shopspring/decimal"

// RawTransaction is a "transaction" line of a ledger export.
type RawTransaction struct {
	ID         string          `json:"id,omitempty"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Date       string          `json:"date"`
	Status     string          `json:"status,omitempty"`
	CategoryID string          `json:"category,omitempty"`
}

// RawBudget is a "budget" line of a ledger export.
type RawBudget struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	PeriodType string          `json:"period"`
	StartDate  string          `json:"start"`
	EndDate    string          `json:"end,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status,omitempty"`
}

// RawAllocation is an "allocation" line. It must follow its budget in the same file.
type RawAllocation struct {
	BudgetID   string          `json:"budget_id"`
	CategoryID string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	AlertAt80  bool            `json:"alert_at_80,omitempty"`
	AlertAt100 bool            `json:"alert_at_100,omitempty"`
}

// DiscoveredFile is a JSONL export found during directory scanning.
type DiscoveredFile struct {
	Path    string
	Account string // first directory under the import root, "default" at the root
}
