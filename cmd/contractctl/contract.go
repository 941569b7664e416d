package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/contracthub/db"
)

var contractFlags struct {
	title  string
	start  string
	end    string
	status string
	doID   string
	poID   string
}

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage contracts",
}

var contractCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contract between a subsidiary and a contractor",
	Long: `Create a contract.

Examples:
  contractctl contract create --title "North bridge repair" --start 2030-01-01 --end 2030-12-31 \
      --status UP --do <subsidiary-id> --po <contractor-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := db.ParseDate(contractFlags.start)
		if err != nil {
			return err
		}
		end, err := db.ParseDate(contractFlags.end)
		if err != nil {
			return err
		}

		c, err := app.contracts.CreateContract(cmd.Context(), db.CreateContractRequest{
			Title:          contractFlags.title,
			StartDate:      start,
			EndDate:        end,
			Status:         db.ContractStatus(contractFlags.status),
			OrganizationDO: contractFlags.doID,
			OrganizationPO: contractFlags.poID,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	},
}

var contractUpdateCmd = &cobra.Command{
	Use:   "update <contract-id>",
	Short: "Update a contract",
	Long: `Update the given fields of a contract. When a party changes, roles held by
users outside both parties are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := updateRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		c, err := app.contracts.UpdateContract(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	},
}

var contractDeleteCmd = &cobra.Command{
	Use:   "delete <contract-id>",
	Short: "Delete a contract and its roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.contracts.DeleteContract(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted contract %s\n", args[0])
		return nil
	},
}

// updateRequestFromFlags sets only the fields whose flags were given
func updateRequestFromFlags(cmd *cobra.Command) (db.UpdateContractRequest, error) {
	var req db.UpdateContractRequest
	flags := cmd.Flags()

	if flags.Changed("title") {
		req.Title = &contractFlags.title
	}
	if flags.Changed("start") {
		d, err := db.ParseDate(contractFlags.start)
		if err != nil {
			return req, err
		}
		req.StartDate = &d
	}
	if flags.Changed("end") {
		d, err := db.ParseDate(contractFlags.end)
		if err != nil {
			return req, err
		}
		req.EndDate = &d
	}
	if flags.Changed("status") {
		status := db.ContractStatus(contractFlags.status)
		req.Status = &status
	}
	if flags.Changed("do") {
		req.OrganizationDO = &contractFlags.doID
	}
	if flags.Changed("po") {
		req.OrganizationPO = &contractFlags.poID
	}
	return req, nil
}

func addContractFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&contractFlags.title, "title", "", "Title (10-100 letters, digits, spaces or hyphens)")
	f.StringVar(&contractFlags.start, "start", "", "Start date, YYYY-MM-DD")
	f.StringVar(&contractFlags.end, "end", "", "End date, YYYY-MM-DD")
	f.StringVar(&contractFlags.status, "status", "", "PD (paid) or UP (unpaid)")
	f.StringVar(&contractFlags.doID, "do", "", "Subsidiary id")
	f.StringVar(&contractFlags.poID, "po", "", "Contractor id")
}

func init() {
	rootCmd.AddCommand(contractCmd)
	contractCmd.AddCommand(contractCreateCmd, contractUpdateCmd, contractDeleteCmd)

	addContractFlags(contractCreateCmd)
	for _, name := range []string{"title", "start", "end", "status", "do", "po"} {
		_ = contractCreateCmd.MarkFlagRequired(name)
	}
	addContractFlags(contractUpdateCmd)
}
