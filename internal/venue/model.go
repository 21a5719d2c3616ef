package venue

// Config carries the venue-level flags that gate payment-method
// compatibility. Loaded server-side; client-reported flags are ignored.
type Config struct {
	// AllowTillForTableCollection permits PAY_AT_TILL on table orders that
	// require collection.
	AllowTillForTableCollection bool

	// AllowDeferredCounter permits PAY_LATER on counter orders.
	AllowDeferredCounter bool
}

type Venue struct {
	ID     string
	Name   string
	Active bool
	Config Config
}
