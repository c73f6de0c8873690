// Command dhp-sync reconciles the neighborhood patrol's vacation requests
// with the officers' shared task list and notifies members of patrol
// activity. It is meant to run unattended from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lwedwards3/dhp-sync/pkg/config"
	"github.com/lwedwards3/dhp-sync/pkg/mailer"
	"github.com/lwedwards3/dhp-sync/pkg/memberclicks"
	"github.com/lwedwards3/dhp-sync/pkg/report"
	"github.com/lwedwards3/dhp-sync/pkg/store"
	"github.com/lwedwards3/dhp-sync/pkg/sync"
	"github.com/lwedwards3/dhp-sync/pkg/tasklist"
)

func main() {
	configDir := flag.String("config", "", "configuration directory (default ~/.config/dhp-sync)")
	testMode := flag.Bool("test", false, "use test files and recipients; never mails members")
	summary := flag.Bool("summary", false, "print the reconciled request snapshot and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	dir := *configDir
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not locate config directory: %v\n", err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(dir, *testMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}

	zcfg := zap.NewProductionConfig()
	if *debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	snapshot := store.New(cfg.RequestsFile)
	if *summary {
		if err := printSummary(snapshot); err != nil {
			logger.Fatal("could not print summary", zap.Error(err))
		}
		return
	}

	tmpl, err := mailer.LoadTemplates(cfg.MemberTemplate, cfg.EODTemplate, time.Local)
	if err != nil {
		logger.Fatal("could not load templates", zap.Error(err))
	}

	engine := sync.NewEngine(
		memberclicks.New(cfg.Profile, cfg.CutoffHour, logger),
		tasklist.New(cfg.Tasks, logger),
		snapshot,
		mailer.New(cfg.Email, logger),
		report.NewRequestLog(cfg.RequestLogFile),
		report.NewRunLog(cfg.LogFile),
		tmpl,
		sync.Options{
			MemberBCC:     cfg.MemberBCC,
			EODRecipients: cfg.EODRecipients,
			EmailMembers:  cfg.EmailMembers,
		},
		logger,
	)

	if _, err := engine.Run(context.Background()); err != nil {
		logger.Fatal("sync run failed", zap.Error(err))
	}
}

// printSummary dumps the snapshot one request per line for quick
// inspection after a run.
func printSummary(snapshot *store.Store) error {
	requests, err := snapshot.Load()
	if err != nil {
		return err
	}
	fmt.Println("address\tdue_date\ttask_id\tcompleted\tassets\tsend_email")
	for _, req := range requests {
		fmt.Printf("%s\t%s\t%d\t%t\t%d\t%t\n",
			req.Address, req.DueDate, req.TaskID, req.Completed, len(req.Assets), req.SendEmail)
	}
	return nil
}
