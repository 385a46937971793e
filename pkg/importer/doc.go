// Package importer reconciles bulk CSV usage exports into the metering
// ledger.
//
// Providers publish usage exports with slightly different column names, so
// the parser resolves each logical field through an alias list: timestamp
// or date, model or model_name, prompt_tokens / n_prompt_tokens /
// input_tokens, and so on. Each usable row becomes a metering event with
// Source set to "import", priced through the same calculator the live
// gateway uses, and written through the same idempotent Record call, so
// importing an export that overlaps live-metered traffic changes nothing.
//
// A malformed row never aborts the batch. It is counted, remembered with
// its row number and reason, and skipped. Only a structurally unusable
// file, for example one whose header has no recognizable columns, fails
// the import as a whole.
package importer
