// Package tracing provides OpenTelemetry tracing for forwarded requests.
//
// # Overview
//
// A span wraps each proxied completion call, carrying the provider, model,
// extracted token counts and computed cost as attributes. Trace context
// arriving on the inbound request is honored, and the outbound upstream
// call carries W3C traceparent headers so collector views show the full
// path from caller through gateway to provider.
//
// # Sampling
//
// The sample ratio in the configuration maps onto a parent-based
// TraceIDRatioBased sampler: 0 disables sampling, 1 samples everything,
// anything between samples that fraction of root traces while always
// honoring an already-sampled parent.
//
// # Usage
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "proxy.openai")
//	defer span.End()
package tracing
