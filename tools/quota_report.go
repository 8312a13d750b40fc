package main

import (
	"estate-match/domain"
	"estate-match/repositories"
	"estate-match/services"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH"`
	// QUOTA_MONTH selects the month to report on, formatted as 2006-01
	Month    string `envconfig:"QUOTA_MONTH"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"WARN"`
}

// Prints every agent's monthly property quota, read from a stopped or live database.
func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}
	if cfg.BadgerFilepath == "" {
		cfg.BadgerFilepath = database.DefaultPath
	}
	asOf := time.Now().UTC()
	if cfg.Month != "" {
		month, err := time.Parse("2006-01", cfg.Month)
		if err != nil {
			log.Fatalf("Invalid QUOTA_MONTH %q: %v", cfg.Month, err)
		}
		asOf = month
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := logs.GetLoggerFromString(cfg.LogLevel)
	store := repositories.NewStore(db, logger, 0)
	users := repositories.NewUserRepository()
	quota := services.NewQuotaService(logger, store, users,
		repositories.NewCatalogRepository(), repositories.NewConversationRepository())

	var agents []domain.User
	err = store.View(func(txn *badger.Txn) error {
		agents, err = users.ListAgents(txn)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Agent", "Company", "Plan", "Used", "Limit", "Exceeded", "Can start"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, agent := range agents {
		report, err := quota.Report(agent.ID, asOf)
		if err != nil {
			fmt.Printf("Error reading quota of %s: %v\n", agent.ID, err)
			continue
		}
		table.Append([]string{
			agent.Name,
			agent.CompanyName,
			report.PlanName,
			strconv.Itoa(report.Count),
			strconv.Itoa(report.Limit),
			strconv.FormatBool(report.Exceeded),
			strconv.FormatBool(report.CanStartNewConversation),
		})
	}

	fmt.Printf("Quota for %s\n", domain.MonthOf(asOf).From.Format("January 2006"))
	table.Render()
}
