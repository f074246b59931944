package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opexhq/expense_approval_app/internal/dto"
)

func newRequestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Manage reimbursement requests",
	}
	cmd.AddCommand(
		newRequestCreateCmd(a),
		newRequestListCmd(a),
		newRequestShowCmd(a),
		newRequestAcceptOverpaymentCmd(a),
		newRequestRejectOverpaymentCmd(a),
		newRequestCancelCmd(a),
		newRequestValidateCmd(a),
		newRequestRejectValidationCmd(a),
		newRequestConfirmPaymentCmd(a),
		newRequestResubmitCreationCmd(a),
		newRequestResubmitValidationCmd(a),
		newRequestDeleteCmd(a),
		newRequestRecoverCmd(a),
	)
	return cmd
}

func newRequestCreateCmd(a *app) *cobra.Command {
	var actor string
	var req dto.CreateRequestRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new reimbursement request",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.create", actor)
			created, err := a.workflow.CreateRequest(ctx, req, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s created (status %s)\n", created.ID, created.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&req.Name, "name", "", "Client name")
	cmd.Flags().StringVar(&req.Surname, "surname", "", "Client surname")
	cmd.Flags().StringVar(&req.InvoiceReference, "reference", "", "Invoice reference")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "Amount to reimburse")
	cmd.Flags().StringVar(&req.Description, "description", "", "Reason for the reimbursement")
	cmd.Flags().StringVar(&req.BankProofPath, "rib", "", "Bank account proof file (mandatory)")
	cmd.Flags().StringVar(&req.InvoicePath, "invoice", "", "Invoice file (optional)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.list", "")
			reqs, err := a.workflow.ListRequests(ctx)
			if err != nil {
				return err
			}
			for _, r := range reqs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s %s\t%s\n",
					r.ID, r.Status, r.Amount.String(), r.Name, r.Surname, r.InvoiceReference)
			}
			return nil
		},
	}
}

func newRequestShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show one request with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.show", "")
			r, err := a.workflow.GetRequestByID(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:         %s\n", r.ID)
			fmt.Fprintf(out, "status:     %s\n", r.Status)
			fmt.Fprintf(out, "requester:  %s (%s %s)\n", r.Requester, r.Name, r.Surname)
			fmt.Fprintf(out, "reference:  %s\n", r.InvoiceReference)
			fmt.Fprintf(out, "amount:     %s\n", r.Amount.String())
			fmt.Fprintf(out, "invoices:   %v\n", r.InvoicePaths)
			fmt.Fprintf(out, "bank proof: %v\n", r.BankAccountPaths)
			fmt.Fprintf(out, "overpayment proof: %v\n", r.OverpaymentProofPaths)
			if r.PaidAt != nil {
				fmt.Fprintf(out, "paid at:    %s\n", r.PaidAt)
			}
			fmt.Fprintln(out, "history:")
			for _, h := range r.History {
				fmt.Fprintf(out, "  %s  %-20s %s: %s\n", h.Timestamp.Format("2006-01-02 15:04"), h.Status, h.Actor, h.Comment)
			}
			return nil
		},
	}
}

func newRequestAcceptOverpaymentCmd(a *app) *cobra.Command {
	var actor string
	var req dto.AcceptOverpaymentRequest
	cmd := &cobra.Command{
		Use:   "accept-overpayment <request-id>",
		Short: "Record the overpayment constat (treasury accountant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.accept_overpayment", actor)
			r, err := a.workflow.AcceptOverpayment(ctx, args[0], req, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&req.ProofPath, "proof", "", "Overpayment evidence file (mandatory)")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "Comment (mandatory)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestRejectOverpaymentCmd(a *app) *cobra.Command {
	var actor, comment string
	cmd := &cobra.Command{
		Use:   "reject-overpayment <request-id>",
		Short: "Reject the request at the overpayment step (treasury accountant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.reject_overpayment", actor)
			r, err := a.workflow.RejectOverpayment(ctx, args[0], comment, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&comment, "comment", "", "Reason for the rejection (mandatory)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestCancelCmd(a *app) *cobra.Command {
	var actor, comment string
	cmd := &cobra.Command{
		Use:   "cancel <request-id>",
		Short: "Cancel a rejected request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.cancel", actor)
			r, err := a.workflow.CancelRequest(ctx, args[0], comment, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&comment, "comment", "", "Reason for the cancellation (mandatory)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestValidateCmd(a *app) *cobra.Command {
	var actor, comment string
	cmd := &cobra.Command{
		Use:   "validate <request-id>",
		Short: "Validate the overpayment constat (chief validator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.validate", actor)
			r, err := a.workflow.ValidateRequest(ctx, args[0], comment, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment (optional)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestRejectValidationCmd(a *app) *cobra.Command {
	var actor, comment string
	cmd := &cobra.Command{
		Use:   "reject-validation <request-id>",
		Short: "Refuse the overpayment constat (chief validator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.reject_validation", actor)
			r, err := a.workflow.RejectValidation(ctx, args[0], comment, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&comment, "comment", "", "Reason for the refusal (mandatory)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestConfirmPaymentCmd(a *app) *cobra.Command {
	var actor, comment string
	cmd := &cobra.Command{
		Use:   "confirm-payment <request-id>",
		Short: "Confirm the reimbursement was paid (supplier accountant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.confirm_payment", actor)
			r, err := a.workflow.ConfirmPayment(ctx, args[0], comment, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s (paid at %s)\n", r.ID, r.Status, r.PaidAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment (optional)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestResubmitCreationCmd(a *app) *cobra.Command {
	var actor string
	var req dto.ResubmitCreationRequest
	cmd := &cobra.Command{
		Use:   "resubmit-creation <request-id>",
		Short: "Resubmit after a creation rejection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.resubmit_creation", actor)
			r, err := a.workflow.ResubmitAfterCreationReject(ctx, args[0], req, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&req.InvoicePath, "invoice", "", "New invoice file")
	cmd.Flags().StringVar(&req.BankProofPath, "rib", "", "New bank account proof file")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "Comment")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestResubmitValidationCmd(a *app) *cobra.Command {
	var actor string
	var req dto.ResubmitValidationRequest
	cmd := &cobra.Command{
		Use:   "resubmit-validation <request-id>",
		Short: "Resubmit the constat after a validation rejection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.resubmit_validation", actor)
			r, err := a.workflow.ResubmitAfterValidationReject(ctx, args[0], req, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s is now %s\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.Flags().StringVar(&req.ProofPath, "proof", "", "New overpayment evidence file")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "Comment")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestDeleteCmd(a *app) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "delete <request-id>",
		Short: "Delete a request and its attachments (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.delete", actor)
			if err := a.workflow.DeleteRequest(ctx, args[0], actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "as", "", "Acting user login")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newRequestRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Quarantine a corrupt request document and start empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.recover", "")
			quarantined, err := a.requestRepo.RecoverCorrupt(ctx)
			if err != nil {
				return err
			}
			if quarantined == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "request document is healthy, nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "corrupt document moved to %s, starting empty\n", quarantined)
			return nil
		},
	}
}

func newPrefillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prefill <invoice.pdf>",
		Short: "Scrape advisory creation-form fields from an invoice PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "request.prefill", "")
			prefill, err := a.extractor.Extract(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nsurname: %s\nreference: %s\n",
				prefill.Name, prefill.Surname, prefill.Reference)
			return nil
		},
	}
}
