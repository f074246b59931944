package dto

// CreateRequestRequest carries the input for opening a new reimbursement
// request. BankProofPath is the mandatory bank-account proof (RIB) file;
// InvoicePath is optional at creation time.
type CreateRequestRequest struct {
	Name             string `validate:"required"`
	Surname          string `validate:"required"`
	InvoiceReference string `validate:"required"`
	Amount           string `validate:"required"`
	Description      string `validate:"required"`
	BankProofPath    string `validate:"required"`
	InvoicePath      string
}

// AcceptOverpaymentRequest carries the treasury accountant's overpayment
// constat: both the proof file and the comment are mandatory.
type AcceptOverpaymentRequest struct {
	ProofPath string `validate:"required"`
	Comment   string `validate:"required"`
}

// ResubmitCreationRequest carries a resubmission after a creation
// rejection. At least one of the three fields must be supplied.
type ResubmitCreationRequest struct {
	InvoicePath   string
	BankProofPath string
	Comment       string
}

// ResubmitValidationRequest carries a resubmission after a validation
// rejection. At least one of the two fields must be supplied.
type ResubmitValidationRequest struct {
	ProofPath string
	Comment   string
}

// InvoicePrefill holds best-effort fields scraped from an invoice PDF to
// pre-fill the creation form. All fields are advisory and may be empty.
type InvoicePrefill struct {
	Name      string
	Surname   string
	Reference string
}
