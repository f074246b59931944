package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(
		newUserCreateCmd(a),
		newUserUpdateCmd(a),
		newUserDeleteCmd(a),
		newUserListCmd(a),
		newUserResetRequestCmd(a),
		newUserResetConfirmCmd(a),
	)
	return cmd
}

func parseRoles(raw string) []domain.Role {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]domain.Role, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, domain.Role(strings.TrimSpace(p)))
	}
	return roles
}

func newUserCreateCmd(a *app) *cobra.Command {
	var login, password, email, roles string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.create", login)
			user, err := a.users.CreateUser(ctx, dto.CreateUserRequest{
				Login:    login,
				Password: password,
				Email:    email,
				Roles:    parseRoles(roles),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created with roles %v\n", user.Login, user.Roles)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "Login")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&roles, "roles", "", "Comma-separated roles (requester, treasury, validator, supplier, admin)")
	cmd.MarkFlagRequired("login")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newUserUpdateCmd(a *app) *cobra.Command {
	var newLogin, email, roles, newPassword string
	cmd := &cobra.Command{
		Use:   "update <login>",
		Short: "Update a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.update", args[0])
			if newLogin == "" {
				newLogin = args[0]
			}
			user, err := a.users.UpdateUser(ctx, args[0], dto.UpdateUserRequest{
				NewLogin:    newLogin,
				Email:       email,
				Roles:       parseRoles(roles),
				NewPassword: newPassword,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s updated (roles %v)\n", user.Login, user.Roles)
			return nil
		},
	}
	cmd.Flags().StringVar(&newLogin, "rename", "", "New login")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&roles, "roles", "", "Comma-separated roles")
	cmd.Flags().StringVar(&newPassword, "password", "", "New password")
	return cmd
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <login>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.delete", args[0])
			if err := a.users.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s deleted\n", args[0])
			return nil
		},
	}
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.list", "")
			users, err := a.users.ListUsers(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", u.Login, u.Email, u.Roles)
			}
			return nil
		},
	}
}

func newUserResetRequestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-request <login>",
		Short: "Issue a password reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.reset_request", args[0])
			code, mailed, err := a.users.RequestPasswordReset(ctx, args[0])
			if err != nil {
				return err
			}
			if mailed {
				fmt.Fprintf(cmd.OutOrStdout(), "reset code mailed to the account address\n")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "mail delivery unavailable, relay this code to the user: %s\n", code)
			}
			return nil
		},
	}
}

func newUserResetConfirmCmd(a *app) *cobra.Command {
	var code, newPassword string
	cmd := &cobra.Command{
		Use:   "reset-confirm <login>",
		Short: "Confirm a password reset code and set a new password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.opContext(cmd, "user.reset_confirm", args[0])
			if err := a.users.ConfirmPasswordReset(ctx, args[0], code, newPassword); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Reset code received by mail")
	cmd.Flags().StringVar(&newPassword, "password", "", "New password")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("password")
	return cmd
}
