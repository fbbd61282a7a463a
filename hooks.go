package opcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Operations call them on hot paths; op is the operation name.
type Hooks interface {
	// Get answered from the store.
	Hit(op string)
	// Get missed the store and started a transport call.
	Miss(op string)
	// Get missed the store and attached to an in-flight call.
	Coalesced(op string)

	// The store dropped an entry on its own.
	// reason ∈ {"capacity", "expired"}
	Evicted(op, reason string)

	// A completed call was not stored because Cancel, ClearCache or ClearAll
	// ran while it was in flight.
	StaleDiscarded(op string)

	// The transport failed or the payload did not decode.
	TransportFailed(op string, err error)
	DecodeFailed(op string, err error)

	// ClearCache emptied the store.
	Cleared(op string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                    {}
func (NopHooks) Miss(string)                   {}
func (NopHooks) Coalesced(string)              {}
func (NopHooks) Evicted(string, string)        {}
func (NopHooks) StaleDiscarded(string)         {}
func (NopHooks) TransportFailed(string, error) {}
func (NopHooks) DecodeFailed(string, error)    {}
func (NopHooks) Cleared(string)                {}
