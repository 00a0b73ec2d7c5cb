package broker

// Observer receives state-change notifications from a Store.
// Methods may be invoked while the Store lock is held: implementations must be
// fast and must not call back into the Store.
type Observer interface {
	EnvelopeQueued(role Role, kind Kind)
	EnvelopeDelivered(role Role, kind Kind)
	ReceiveTimedOut(role Role)
	JoinRejected()
	RosterSize(n int)
	QueueDepth(role Role, depth int)
	StoreReset()
}

type nopObserver struct{}

func (nopObserver) EnvelopeQueued(Role, Kind)    {}
func (nopObserver) EnvelopeDelivered(Role, Kind) {}
func (nopObserver) ReceiveTimedOut(Role)         {}
func (nopObserver) JoinRejected()                {}
func (nopObserver) RosterSize(int)               {}
func (nopObserver) QueueDepth(Role, int)         {}
func (nopObserver) StoreReset()                  {}
