// Meterr is a usage metering and cost-attribution gateway for LLM APIs.
//
// It sits between applications and LLM providers as a transparent proxy,
// extracting token usage from each response, pricing it against a
// versioned pricing table, and recording an idempotent metering event per
// call in a durable ledger.
//
// Usage:
//
//	# Start the gateway with default configuration
//	meterr run
//
//	# Start with a custom configuration file
//	meterr run --config /etc/meterr/config.yaml
//
//	# Reconcile a provider CSV export into the ledger
//	meterr import --file usage.csv --customer acme --provider openai
//
//	# Generate cost optimization insights for a customer
//	meterr insights --customer acme --output json
//
//	# Replay dead-lettered metering events into the ledger
//	meterr replay-deadletter
//
//	# Validate a configuration file
//	meterr validate --config config.yaml
package main

func main() {
	Execute()
}
