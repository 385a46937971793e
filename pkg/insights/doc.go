// Package insights derives cost optimization advisories from a customer's
// aggregated usage.
//
// The generators are heuristics over the ledger aggregate, not
// prescriptions. Each one reports an estimated saving computed with the
// same pricing table the ledger used, so the numbers reconcile against
// the recorded spend:
//
//   - Model downgrade: traffic on an expensive model that has a cheaper
//     sibling; the saving is the exact re-priced difference.
//   - Prompt heavy: prompt tokens averaging more than twice completion
//     tokens suggests verbose prompts; estimated at 30% of that spend.
//   - Model concentration: one model carrying more than 70% of spend
//     suggests routing everything uniformly instead of by task
//     complexity.
package insights
