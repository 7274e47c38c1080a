package store

// Composite implements Store by splitting the interface across the two
// concrete backends spec.md's persistence façade calls for: a relational
// backend for programs (naturally tabular) and a KV backend for
// everything else.
type Composite struct {
	ProgramStore
	SavedConnectionStore
	ConfigurationStore
	IODisplayStore
	HMIPanelStore

	closers []func() error
}

// NewComposite assembles a Store from a program backend and a kv backend,
// tracking close(s) on both so Close() tears the whole façade down.
func NewComposite(programs ProgramStore, kv interface {
	SavedConnectionStore
	ConfigurationStore
	IODisplayStore
	HMIPanelStore
}, closers ...func() error) *Composite {
	return &Composite{
		ProgramStore:         programs,
		SavedConnectionStore: kv,
		ConfigurationStore:   kv,
		IODisplayStore:       kv,
		HMIPanelStore:        kv,
		closers:              closers,
	}
}

func (c *Composite) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
