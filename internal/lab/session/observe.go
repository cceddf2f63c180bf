package session

// Subscribe registers fn to receive every state change in version order.
// fn runs on the goroutine that made the change. It must not block or
// mutate the controller. The returned func unregisters fn.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.observersMu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.observersMu.Unlock()

	return func() {
		c.observersMu.Lock()
		delete(c.observers, id)
		c.observersMu.Unlock()
	}
}

// publish delivers st unless a newer snapshot already went out. Concurrent
// changes can finish out of order; observers only ever move forward.
func (c *Controller) publish(st State) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	if st.Version <= c.lastDelivered {
		return
	}
	c.lastDelivered = st.Version
	for _, fn := range c.observers {
		fn(st)
	}
}
