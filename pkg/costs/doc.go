// Package costs computes the monetary cost of LLM token usage.
//
// All arithmetic is fixed-point: amounts are int64 micro-USD (one millionth
// of a dollar) and divisions round half-up, so repeated calculations never
// accumulate floating-point drift. A cost of $0.004 is exactly 4000 units.
//
// The calculator never fails for an unknown model. Pricing resolution walks
// a fallback chain (exact model, model prefix, provider default, global
// default) provided by a PriceSource, and the result carries a Confidence
// flag: ConfidenceExact when the pricing table had a precise match for the
// model, ConfidenceEstimated when any fallback rate was applied. Producing
// an imprecise cost is always preferred over producing no cost.
//
// # Usage
//
//	calc := costs.NewCalculator(table)
//	cost, err := calc.Calculate("openai", "gpt-4", 1000, 500, time.Now())
//	if err != nil {
//		return err
//	}
//	fmt.Printf("cost: %s (%s)\n", cost.Amount, cost.Confidence)
package costs
