/*
Package cli provides shared helpers for the meterr command.

Output Formatting:

Command results render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, batch); err != nil {
		return err
	}

Progress Reporting:

Long-running operations such as dead-letter replays show a progress bar:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(total)
	progress.Update(done)
	progress.Finish()

Signal Handling:

Commands that run until interrupted derive their context from the signal
handler:

	ctx := cli.SetupSignalHandler()
*/
package cli
