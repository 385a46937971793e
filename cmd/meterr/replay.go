package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meterr-hq/io/pkg/cli"
	"meterr-hq/io/pkg/ledger/deadletter"
)

var replayFlags struct {
	batchSize int
}

var replayCmd = &cobra.Command{
	Use:   "replay-deadletter",
	Short: "Replay dead-lettered metering events into the ledger",
	Long: `Replay parked metering events from the dead-letter store into the
usage ledger.

Events that insert or turn out to be duplicates are removed from the
dead-letter store; events that still fail stay parked for the next run.
The gateway also replays on a schedule, so this command is for draining
a backlog immediately after a ledger outage.

Examples:
  meterr replay-deadletter
  meterr replay-deadletter --batch-size 500`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().IntVar(&replayFlags.batchSize, "batch-size", 0, "events per batch (defaults to the configured size)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	if !cfg.DeadLetter.Enabled {
		return cli.NewCommandError("replay-deadletter",
			fmt.Errorf("dead-letter store is disabled in configuration"))
	}

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	defer store.Close()

	deadLetter, err := deadletter.NewStore(deadletter.StoreConfig{
		DBPath:      cfg.DeadLetter.Path,
		BusyTimeout: cfg.DeadLetter.BusyTimeout,
	})
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	defer deadLetter.Close()

	ctx := cli.SetupSignalHandler()

	total, err := deadLetter.Count(ctx)
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	if total == 0 {
		fmt.Println("Dead-letter store is empty")
		return nil
	}

	batchSize := replayFlags.batchSize
	if batchSize <= 0 {
		batchSize = cfg.Retention.ReplayBatchSize
	}

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(total)

	n, err := deadLetter.Replay(ctx, store, batchSize)
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	replayed := int64(n)
	progress.Update(replayed)
	progress.Finish()

	remaining, err := deadLetter.Count(ctx)
	if err != nil {
		return cli.NewCommandError("replay-deadletter", err)
	}
	fmt.Printf("Replayed %d events, %d still parked\n", replayed, remaining)
	return nil
}
