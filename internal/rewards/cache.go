package rewards

import "sync"

// BalanceCache holds the last known owner balances for immediate feedback
// while the durable ledger write is in flight. Pending and confirmed
// amounts are tracked separately so an optimistic grant can be rolled
// back without touching confirmed state.
type BalanceCache struct {
	mu        sync.Mutex
	confirmed map[string]int64
	pending   map[string]int64
}

// NewBalanceCache creates an empty balance cache.
func NewBalanceCache() *BalanceCache {
	return &BalanceCache{
		confirmed: make(map[string]int64),
		pending:   make(map[string]int64),
	}
}

// AddPending records an optimistic amount for the owner.
func (c *BalanceCache) AddPending(owner string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[owner] += amount
}

// Confirm moves a pending amount into the confirmed balance.
func (c *BalanceCache) Confirm(owner string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[owner] -= amount
	c.confirmed[owner] += amount
}

// Rollback discards a pending amount after a failed persist.
func (c *BalanceCache) Rollback(owner string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[owner] -= amount
}

// SetConfirmed replaces the confirmed balance for the owner.
func (c *BalanceCache) SetConfirmed(owner string, balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed[owner] = balance
}

// Balance returns confirmed + pending for the owner.
func (c *BalanceCache) Balance(owner string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed[owner] + c.pending[owner]
}

// Confirmed returns the confirmed balance for the owner.
func (c *BalanceCache) Confirmed(owner string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed[owner]
}

// Pending returns the in-flight balance for the owner.
func (c *BalanceCache) Pending(owner string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[owner]
}
