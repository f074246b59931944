// Package models holds the persistence representation of domain entities as
// they are serialized into the JSON documents on disk. Field names follow
// the on-disk snake_case schema; mapping to and from domain types happens
// at the repository boundary.
package models

// HistoryEntry is the stored form of one audit-trail record. Timestamps
// are ISO-8601 strings on disk.
type HistoryEntry struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	Comment   string `json:"comment"`
}

// ReimbursementRequest is the stored form of one request record.
type ReimbursementRequest struct {
	ID                    string         `json:"id"`
	FolderKey             string         `json:"folder_key"`
	Requester             string         `json:"requester"`
	LastModifiedBy        string         `json:"last_modified_by"`
	Name                  string         `json:"name"`
	Surname               string         `json:"surname"`
	InvoiceReference      string         `json:"invoice_reference"`
	Description           string         `json:"description"`
	Amount                string         `json:"amount"`
	Status                string         `json:"status"`
	CreatedAt             string         `json:"created_at"`
	LastModifiedAt        string         `json:"last_modified_at"`
	PaidAt                string         `json:"paid_at,omitempty"`
	InvoicePaths          []string       `json:"invoice_paths"`
	BankAccountPaths      []string       `json:"bank_account_paths"`
	OverpaymentProofPaths []string       `json:"overpayment_proof_paths"`
	History               []HistoryEntry `json:"history"`
}
