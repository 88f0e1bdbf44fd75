package gateway

// broadcast delivers an event to every live connection in a room, except
// excludeConnID when non-empty. Delivery to a connection whose send queue
// is full or whose transport already failed is dropped, not retried; the
// eventual disconnect cleanup removes it. Returns the number of
// connections the event was queued for.
func (g *Gateway) broadcast(vacationID, event string, payload any, excludeConnID string) int {
	frame := &ServerFrame{
		Event: event,
		Data:  payload,
	}

	var delivered int
	for _, connID := range g.rooms.Members(vacationID) {
		if connID == excludeConnID {
			continue
		}

		c, ok := g.registry.Client(connID)
		if !ok {
			continue
		}

		if c.queueFrame(frame) {
			delivered++
		}
	}

	return delivered
}
