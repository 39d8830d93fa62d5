package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/config"
	"github.com/creditsphere/creditsphere/internal/credit"
	"github.com/creditsphere/creditsphere/internal/gcs"
	infraBQ "github.com/creditsphere/creditsphere/internal/infra/bigquery"
	"github.com/creditsphere/creditsphere/internal/logger"
	"github.com/creditsphere/creditsphere/internal/rewards"
	"github.com/creditsphere/creditsphere/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "overview":
		runOverview(log)
	case "reminders":
		runReminders(log)
	case "allocate":
		runAllocate(log)
	case "recommend":
		runRecommend(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("CreditSphere Advisor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  advisor <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  overview   Show credit utilization across all active cards")
	fmt.Println("  reminders  Show upcoming payment due dates")
	fmt.Println("  allocate   Plan how to split a spend amount across cards")
	fmt.Println("  recommend  Rank card products by net annual value")
	fmt.Println("  upload     Upload a statement file to GCS")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'advisor <command> -h' for more information on a command.")
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, func()) {
	if cfg.GCPProject == "" {
		log.Fatal().Msg("GCP_PROJECT is required: the advisor reads persisted card and transaction data")
	}

	bq, err := infraBQ.New(ctx, infraBQ.Config{ProjectID: cfg.GCPProject, DatasetID: cfg.BQDataset}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	return bq, func() { bq.Close() }
}

func runOverview(log zerolog.Logger) {
	fs := flag.NewFlagSet("overview", flag.ExitOnError)
	user := fs.String("user", "", "user ID")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, cleanup := openStore(ctx, config.Load(), log)
	defer cleanup()

	overview, err := credit.NewEngine(st, log).Overview(ctx, *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute overview")
	}

	fmt.Println("\n=== Credit Overview ===")
	fmt.Printf("Total limit:  $%s\n", overview.TotalCreditLimit.StringFixed(2))
	fmt.Printf("Total used:   $%s\n", overview.TotalUsed.StringFixed(2))
	fmt.Printf("Utilization:  %s%% (%s)\n", overview.OverallUtilization.StringFixed(2), overview.HealthStatus)

	for _, card := range overview.Cards {
		fmt.Printf("\n%s %s ****%s\n", card.Issuer, card.Product, card.Last4)
		fmt.Printf("   Limit:       $%s\n", card.CreditLimit.StringFixed(2))
		fmt.Printf("   Balance:     $%s\n", card.CurrentBalance.StringFixed(2))
		fmt.Printf("   Utilization: %s%% (%s)\n", card.UtilizationRate.StringFixed(2), card.HealthStatus)
	}
	fmt.Println()
}

func runReminders(log zerolog.Logger) {
	fs := flag.NewFlagSet("reminders", flag.ExitOnError)
	user := fs.String("user", "", "user ID")
	window := fs.Int("window", credit.DefaultReminderWindow, "days ahead to look for due dates")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, cleanup := openStore(ctx, config.Load(), log)
	defer cleanup()

	reminders, err := credit.NewEngine(st, log).PaymentReminders(ctx, *user, *window, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute reminders")
	}

	if len(reminders) == 0 {
		fmt.Printf("No payments due in the next %d day(s).\n", *window)
		return
	}

	fmt.Printf("\n=== Payments due in the next %d day(s) ===\n", *window)
	for _, r := range reminders {
		fmt.Printf("\n%s %s — due %s (%d day(s))\n", r.Issuer, r.Product, r.DueDate.Format("2006-01-02"), r.DaysUntilDue)
		fmt.Printf("   Balance:     $%s\n", r.CurrentBalance.StringFixed(2))
		fmt.Printf("   Minimum due: $%s\n", r.MinimumPayment.StringFixed(2))
	}
	fmt.Println()
}

func runAllocate(log zerolog.Logger) {
	fs := flag.NewFlagSet("allocate", flag.ExitOnError)
	user := fs.String("user", "", "user ID")
	amount := fs.String("amount", "", "spend amount to allocate, e.g. 1500.00")
	fs.Parse(os.Args[2:])

	if *user == "" || *amount == "" {
		log.Fatal().Msg("Usage: advisor allocate -user ID -amount 1500.00")
	}
	spend, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid amount")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, cleanup := openStore(ctx, config.Load(), log)
	defer cleanup()

	plan, err := credit.NewEngine(st, log).OptimizeSpending(ctx, *user, spend)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to plan allocation")
	}

	fmt.Printf("\n=== Allocation plan for $%s ===\n", spend.StringFixed(2))
	fmt.Printf("Feasible: %v\n", plan.Feasible)
	fmt.Printf("%s\n", plan.Summary)

	for i, step := range plan.Steps {
		fmt.Printf("\n%d. %s %s ****%s: charge $%s\n", i+1, step.Issuer, step.Product, step.Last4, step.AmountToCharge.StringFixed(2))
		fmt.Printf("   Utilization %s%% -> %s%%\n", step.CurrentUtilization.StringFixed(2), step.NewUtilization.StringFixed(2))
		fmt.Printf("   %s\n", step.Reason)
	}
	for _, w := range plan.Warnings {
		fmt.Printf("\nWarning: %s\n", w)
	}
	fmt.Println()
}

func runRecommend(log zerolog.Logger) {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	user := fs.String("user", "", "user ID")
	income := fs.Int("income", 0, "annual income for eligibility filtering (0 skips the filter)")
	limit := fs.Int("limit", rewards.DefaultRecommendLimit, "number of products to show")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, cleanup := openStore(ctx, config.Load(), log)
	defer cleanup()

	valuations, err := rewards.NewEngine(st, log).Recommend(ctx, *user, *income, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to score products")
	}

	if len(valuations) == 0 {
		fmt.Println("No eligible card products found.")
		return
	}

	fmt.Println("\n=== Recommended cards (best net annual value first) ===")
	for i, v := range valuations {
		fmt.Printf("\n%d. %s %s — NAV $%s/yr\n", i+1, v.Product.Issuer, v.Product.ProductName, v.NAV.StringFixed(2))
		fmt.Printf("   Rewards: $%s  Bonus: $%s  Fee: $%s\n",
			v.AnnualRewards.StringFixed(2), v.BonusValue.StringFixed(2), v.AnnualFee.StringFixed(2))
	}
	fmt.Println()
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucket := fs.String("bucket", "", "GCS bucket name (defaults to GCS_BUCKET)")
	object := fs.String("object", "", "GCS object name (defaults to filename)")
	file := fs.String("file", "", "path to local statement file")
	fs.Parse(os.Args[2:])

	cfg := config.Load()
	if *bucket == "" {
		*bucket = cfg.GCSBucket
	}
	if *bucket == "" || *file == "" {
		log.Fatal().Msg("Usage: advisor upload -bucket NAME -file PATH")
	}
	if *object == "" {
		*object = filepath.Base(*file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := gcs.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	log.Info().
		Str("bucket", *bucket).
		Str("object", *object).
		Str("file", *file).
		Msg("Uploading file to GCS")

	if err := client.Upload(ctx, *bucket, *object, *file); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *file, *bucket, *object)
}
