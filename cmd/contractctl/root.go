package main

import (
	"database/sql"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/internal/bootstrap"
	"github.com/phonginreallife/contracthub/internal/config"
	"github.com/phonginreallife/contracthub/internal/logger"
	"github.com/phonginreallife/contracthub/services"
)

var configPath string

// app holds the connections opened for the running command
var app struct {
	pg            *sql.DB
	backend       *authz.Backend
	contracts     *authz.ContractService
	users         *authz.UserService
	organizations *authz.OrganizationService
	auth          *services.AuthService
}

var rootCmd = &cobra.Command{
	Use:          "contractctl",
	Short:        "contracthub administration CLI",
	Long:         `Create and maintain subsidiaries, contractors, users and contracts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(configPath); err != nil {
			return err
		}
		log := logger.Setup(config.App.Dev)
		ctx := log.WithContext(cmd.Context())
		cmd.SetContext(ctx)

		pg, err := bootstrap.OpenPostgres(ctx, config.App.DatabaseURL)
		if err != nil {
			return err
		}
		app.pg = pg
		wireServices(pg)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.pg != nil {
			return app.pg.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONTRACTHUB_CONFIG_PATH"), "Path to a YAML config file")
}

func wireServices(pg *sql.DB) {
	b := authz.NewSimpleBackend(pg)
	app.backend = b
	app.contracts = authz.NewContractService(b.Authorizer, b.Roles, b.Contracts, b.Users, b.Organizations, b.Tx)
	app.users = authz.NewUserService(b.Users, b.Roles, b.Organizations, b.Tx)
	app.organizations = authz.NewOrganizationService(b.Organizations, b.Users)
	app.auth = services.NewAuthService(b.Users, nil)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
