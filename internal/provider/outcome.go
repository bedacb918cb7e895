// Package provider defines the outcome envelope shared by all external
// data providers.
package provider

// Mode tags how an outcome's data was produced.
type Mode string

// Outcome modes. Every provider call lands in exactly one of them.
const (
	// ModeReal means the data came from a live provider call.
	ModeReal Mode = "real"
	// ModeDemo means no credential was configured and deterministic
	// sample data was generated without touching the network.
	ModeDemo Mode = "demo"
	// ModeFailed means a live call was attempted and failed; the data is
	// fallback-shaped and Err records the cause.
	ModeFailed Mode = "failed"
)

// Outcome wraps provider data with the mode that produced it. Data is
// structurally complete in every mode, so consumers never branch on
// missing fields.
type Outcome[T any] struct {
	Mode   Mode
	Data   T
	Reason string
	Err    error
}

// Real wraps live provider data.
func Real[T any](data T) Outcome[T] {
	return Outcome[T]{Mode: ModeReal, Data: data}
}

// Demo wraps generated sample data with the reason the provider was skipped.
func Demo[T any](data T, reason string) Outcome[T] {
	return Outcome[T]{Mode: ModeDemo, Data: data, Reason: reason}
}

// Failed wraps fallback data with the error that forced it.
func Failed[T any](data T, err error) Outcome[T] {
	return Outcome[T]{Mode: ModeFailed, Data: data, Err: err}
}

// Degraded reports whether the data is anything other than live.
func (o Outcome[T]) Degraded() bool {
	return o.Mode != ModeReal
}
