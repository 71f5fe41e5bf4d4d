package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hbar_recovery/internal/checkpoint"
	"hbar_recovery/internal/dedupe"
	"hbar_recovery/internal/derive"
	"hbar_recovery/internal/engine"
	"hbar_recovery/internal/oracle"
	"hbar_recovery/internal/pattern"
	"hbar_recovery/internal/store"
	"hbar_recovery/internal/vocab"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start (or resume) the recovery run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecovery()
		},
	}
	cmd.Flags().IntVar(&overrideWorkers, "workers", 0, "override worker count")
	cmd.Flags().StringVar(&overrideWordlist, "wordlist", "", "override wordlist path")
	return cmd
}

var (
	overrideWorkers  int
	overrideWordlist string
)

func runRecovery() error {
	if overrideWorkers > 0 {
		cfg.Workers = overrideWorkers
	}
	if overrideWordlist != "" {
		cfg.WordlistPath = overrideWordlist
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	words, err := vocab.Load(cfg.WordlistPath, log)
	if err != nil {
		return err
	}

	ckptStore, err := checkpoint.OpenStore(cfg.CheckpointDir, log)
	if err != nil {
		return err
	}
	defer ckptStore.Close()

	gen := pattern.New(words, cfg.PhraseLength, pattern.Options{
		SampleCap:      cfg.SampleCap,
		ExhaustiveMode: cfg.ExhaustiveMode,
	}, log)

	sched := checkpoint.NewManager(gen, ckptStore, cfg.CheckpointEvery, log)
	resumed, err := sched.Load()
	if err != nil {
		return err
	}
	if !resumed {
		log.Info("no checkpoint found, starting from the beginning")
	}

	ledger, err := dedupe.NewLedger(ckptStore, 10_000_000)
	if err != nil {
		return err
	}

	records, err := store.Open(cfg.DatabaseURL, cfg.Workers)
	if err != nil {
		return err
	}
	defer records.Close()

	if st, err := records.Stats(ctx); err == nil {
		log.WithFields(map[string]interface{}{
			"tested": st.TotalTested, "funded": st.WalletsFound,
		}).Info("previous progress")
	}

	orc := oracle.NewClient(cfg.MirrorNodeURL, cfg.OracleRateLimit, cfg.OracleBurst,
		cfg.OracleRetries, cfg.OracleTimeout, log)
	deriver := derive.NewEngine(cfg.Passphrases, cfg.EnabledMethods)

	eng := engine.New(cfg, sched, deriver, ledger, orc, records, log)

	go func() {
		for f := range eng.Findings() {
			fmt.Printf("\n========================================\n")
			fmt.Printf("FUNDED WALLET FOUND\n")
			fmt.Printf("  method:   %s\n", f.Method)
			fmt.Printf("  accounts: %v\n", f.Accounts)
			fmt.Printf("  balance:  %d tinybars\n", f.Balance)
			fmt.Printf("  mnemonic: %s\n", f.Mnemonic)
			fmt.Printf("========================================\n\n")
		}
	}()

	log.WithFields(map[string]interface{}{
		"words":   words.Len(),
		"length":  cfg.PhraseLength,
		"workers": cfg.Workers,
		"methods": len(deriver.Methods()),
	}).Info("starting recovery")

	err = eng.Run(ctx)

	st := eng.Stats()
	log.WithFields(map[string]interface{}{
		"tested": st.Tested, "invalid": st.Invalid, "funded": st.Funded,
		"deferred": st.Deferred, "errors": st.Errors,
	}).Info("run finished")
	return err
}
