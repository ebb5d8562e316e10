package assets

import (
	"fmt"

	"LiqSentinel/internal/event"
)

// PoolConfig names one lending pool.
type PoolConfig struct {
	Name    string
	Address event.Address
}

// PoolRegistry resolves pool addresses to their configured names. Like the
// asset registry it is built once from configuration and read-only after.
type PoolRegistry struct {
	byName    map[string]PoolConfig
	byAddress map[event.Address]PoolConfig
	all       []PoolConfig
}

func NewPoolRegistry(configs []PoolConfig) (*PoolRegistry, error) {
	r := &PoolRegistry{
		byName:    make(map[string]PoolConfig, len(configs)),
		byAddress: make(map[event.Address]PoolConfig, len(configs)),
		all:       make([]PoolConfig, 0, len(configs)),
	}

	for _, c := range configs {
		if c.Name == "" {
			return nil, fmt.Errorf("pool %s has empty name", c.Address)
		}
		c.Address = event.NormalizeAddress(string(c.Address))

		if _, exists := r.byName[c.Name]; exists {
			return nil, fmt.Errorf("duplicate pool name %s", c.Name)
		}
		if _, exists := r.byAddress[c.Address]; exists {
			return nil, fmt.Errorf("duplicate pool address %s", c.Address)
		}

		r.byName[c.Name] = c
		r.byAddress[c.Address] = c
		r.all = append(r.all, c)
	}

	return r, nil
}

// ByName looks a pool up by its configured name.
func (r *PoolRegistry) ByName(name string) (PoolConfig, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// ByAddress looks a pool up by its on-chain address.
func (r *PoolRegistry) ByAddress(addr event.Address) (PoolConfig, bool) {
	c, ok := r.byAddress[event.NormalizeAddress(string(addr))]
	return c, ok
}

// All returns every configured pool.
func (r *PoolRegistry) All() []PoolConfig {
	out := make([]PoolConfig, len(r.all))
	copy(out, r.all)
	return out
}
