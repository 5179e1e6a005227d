// internal/rates/provider.go
package rates

import "context"

// Provider fetches a fresh rate snapshot from an external price source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (*Table, error)
}
