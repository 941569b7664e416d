package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/contracthub/db"
)

var (
	newUser  db.CreateUserRequest
	jobTitle string
	orgRef   string
	noOrg    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user, optionally attached to an organization.

Organizations are referenced as kind:id, where kind is subsidiary or contractor.

Examples:
  contractctl user create --username root --password s3cret --first-name Root --last-name Director \
      --job-title GD --org subsidiary:6f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		newUser.JobTitle = db.JobTitle(jobTitle)
		if orgRef != "" {
			ref, err := db.ParseOrgRef(orgRef)
			if err != nil {
				return err
			}
			newUser.Organization = &ref
		}

		hash, err := app.auth.HashPassword(newUser.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := &db.User{
			Username:     newUser.Username,
			FirstName:    newUser.FirstName,
			LastName:     newUser.LastName,
			Email:        newUser.Email,
			JobTitle:     newUser.JobTitle,
			Organization: newUser.Organization,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := app.users.SaveUser(cmd.Context(), user); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), user)
	},
}

var userSetOrgCmd = &cobra.Command{
	Use:   "set-org <user-id>",
	Short: "Move a user to another organization",
	Long: `Move a user to another organization. Their roles on contracts that do not
involve the new organization are removed in the same transaction.

Examples:
  contractctl user set-org 2b7e... --org contractor:91aa...
  contractctl user set-org 2b7e... --none`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref *db.OrgRef
		switch {
		case noOrg && orgRef != "":
			return errors.New("--org and --none are mutually exclusive")
		case noOrg:
		case orgRef != "":
			parsed, err := db.ParseOrgRef(orgRef)
			if err != nil {
				return err
			}
			ref = &parsed
		default:
			return errors.New("one of --org or --none is required")
		}

		user, err := app.users.UpdateUserOrganization(cmd.Context(), args[0], ref)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), user)
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user and their contract roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.users.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userSetOrgCmd, userDeleteCmd)

	f := userCreateCmd.Flags()
	f.StringVar(&newUser.Username, "username", "", "Login name")
	f.StringVar(&newUser.Password, "password", "", "Password for the token endpoint")
	f.StringVar(&newUser.FirstName, "first-name", "", "First name")
	f.StringVar(&newUser.LastName, "last-name", "", "Last name")
	f.StringVar(&newUser.Email, "email", "", "Email address")
	f.StringVar(&jobTitle, "job-title", "", "GD, VD, MN, SP or AS")
	f.StringVar(&orgRef, "org", "", "Organization as kind:id")
	for _, name := range []string{"username", "password", "first-name", "last-name", "job-title"} {
		_ = userCreateCmd.MarkFlagRequired(name)
	}

	userSetOrgCmd.Flags().StringVar(&orgRef, "org", "", "New organization as kind:id")
	userSetOrgCmd.Flags().BoolVar(&noOrg, "none", false, "Detach the user from any organization")
}
