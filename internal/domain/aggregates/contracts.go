package aggregates

// Contract declares which domain events an aggregate may raise. The unit of
// work refuses to queue an event its aggregate does not declare.
type Contract struct {
	Name       string
	EventNames []string
}

// Aggregate is implemented by aggregates that publish a contract.
type Aggregate interface {
	Contract() Contract
}

// Emits reports whether the contract lists name among its events.
func (c Contract) Emits(name string) bool {
	for _, n := range c.EventNames {
		if n == name {
			return true
		}
	}
	return false
}
