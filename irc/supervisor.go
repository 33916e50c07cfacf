package irc

import (
	"context"
	"time"
)

// handleDrop runs when the reader loop observes a transport error that was
// not caused by a deliberate Disconnect. It tears down the dead connection,
// emits "disconnected", and — unless reconnection is disabled or this
// Disconnect was deliberate — hands off to the Supervisor's backoff loop.
//
// Grounded on spec.md §4.7's state machine (OPEN -closes-> CLOSING -> CLOSED,
// reconnect only if reconnect=true && !wasCloseCalled &&
// reconnectAttempts < maxReconnectAttempts, treating a negative
// maxReconnectAttempts as unbounded per config.go's defaultConfig).
func (c *Client) handleDrop(cause error) {
	c.mu.Lock()
	t := c.transport
	cancel := c.cancel
	c.mu.Unlock()

	c.state.setReadyState(StateClosing)
	if cancel != nil {
		cancel()
	}
	if t != nil {
		_ = t.close()
	}
	if c.joinQueue != nil {
		c.joinQueue.Stop()
	}
	if c.privmsgQueue != nil {
		c.privmsgQueue.Stop()
	}
	if c.modQueue != nil {
		c.modQueue.Stop()
	}
	c.mu.Lock()
	c.transport = nil
	c.cancel = nil
	c.mu.Unlock()

	c.state.setReadyState(StateClosed)

	c.state.mu.RLock()
	deliberate := c.state.wasCloseCalled
	c.state.mu.RUnlock()

	c.Emit("disconnected", errorText(cause))

	if deliberate || !c.cfg.Connection.Reconnect {
		return
	}

	go c.superviseReconnect()
}

// superviseReconnect runs the exponential-backoff loop described in
// spec.md §4.7: initial delay = reconnect_decay * reconnect_interval, then
// delay = min(previous*decay, maxInterval), retried until Connect
// succeeds, MaxReconnectAttempts is exhausted (a non-negative limit), or
// Disconnect/a new deliberate close intervenes.
func (c *Client) superviseReconnect() {
	delay := nextBackoff(c.cfg.Connection.ReconnectInterval, c.cfg.Connection.ReconnectDecay, c.cfg.Connection.MaxReconnectInterval)

	for {
		c.state.mu.Lock()
		c.state.reconnectAttempts++
		attempt := c.state.reconnectAttempts
		c.state.mu.Unlock()

		if c.cfg.Connection.MaxReconnectAttempts >= 0 && attempt > c.cfg.Connection.MaxReconnectAttempts {
			c.Emit("disconnected", "Maximum reconnection attempts reached")
			return
		}

		c.Emit("reconnecting", attempt, delay)
		time.Sleep(delay)

		c.state.mu.RLock()
		deliberate := c.state.wasCloseCalled
		c.state.mu.RUnlock()
		if deliberate {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Connection.Timeout)
		err := c.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		c.logger.Warn("reconnect attempt %d failed: %v", attempt, err)

		delay = nextBackoff(delay, c.cfg.Connection.ReconnectDecay, c.cfg.Connection.MaxReconnectInterval)
	}
}

// nextBackoff computes spec.md §4.7's exponential schedule:
// min(previous*decay, max).
func nextBackoff(previous time.Duration, decay float64, max time.Duration) time.Duration {
	next := time.Duration(float64(previous) * decay)
	if next > max {
		return max
	}
	return next
}

func errorText(err error) string {
	if err == nil {
		return "Connection closed."
	}
	return err.Error()
}
