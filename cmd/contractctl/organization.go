package main

import (
	"github.com/spf13/cobra"
)

var (
	orgName       string
	isSystemOwner bool
	licensed      bool
)

var subsidiaryCmd = &cobra.Command{
	Use:   "subsidiary",
	Short: "Manage subsidiaries",
}

var subsidiaryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a subsidiary",
	Long: `Create a subsidiary organization.

Examples:
  contractctl subsidiary create --name "Head Office" --system-owner
  contractctl subsidiary create --name "North Branch"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := app.organizations.CreateSubsidiary(cmd.Context(), orgName, isSystemOwner)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var contractorCmd = &cobra.Command{
	Use:   "contractor",
	Short: "Manage contractors",
}

var contractorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contractor",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := app.organizations.CreateContractor(cmd.Context(), orgName, licensed)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	},
}

func init() {
	rootCmd.AddCommand(subsidiaryCmd, contractorCmd)
	subsidiaryCmd.AddCommand(subsidiaryCreateCmd)
	contractorCmd.AddCommand(contractorCreateCmd)

	subsidiaryCreateCmd.Flags().StringVar(&orgName, "name", "", "Organization name (letters, spaces and hyphens)")
	subsidiaryCreateCmd.Flags().BoolVar(&isSystemOwner, "system-owner", false, "Its general directors see every contract")
	_ = subsidiaryCreateCmd.MarkFlagRequired("name")

	contractorCreateCmd.Flags().StringVar(&orgName, "name", "", "Organization name (letters, spaces and hyphens)")
	contractorCreateCmd.Flags().BoolVar(&licensed, "licensed", false, "Contractor holds a license")
	_ = contractorCreateCmd.MarkFlagRequired("name")
}
