// Package enrich holds what the annotation source variants share: the
// telemetry observer they report best-effort outcomes to. Sources never
// surface failures to callers, so the observer is the only place fetch
// problems become visible beyond logs.
package enrich

// Observer receives best-effort enrichment telemetry.
type Observer interface {
	DocumentAttached(source string)
	FetchFailure(source, stage string)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) DocumentAttached(string) {}

func (NopObserver) FetchFailure(string, string) {}
