package evo

// IDCounter hands out monotonically increasing individual ids. One counter
// is owned by each Environment.
type IDCounter struct {
	next int
}

// NewIDCounter returns a counter whose first id is start.
func NewIDCounter(start int) *IDCounter {
	return &IDCounter{next: start}
}

// Next allocates a fresh id.
func (c *IDCounter) Next() int {
	id := c.next
	c.next++
	return id
}

// Peek returns the id the next call to Next will allocate.
func (c *IDCounter) Peek() int { return c.next }

// Sync moves the counter past n if it is not already.
func (c *IDCounter) Sync(n int) {
	if n > c.next {
		c.next = n
	}
}

// Restore sets the counter to n, including backwards. Used when resuming.
func (c *IDCounter) Restore(n int) { c.next = n }
