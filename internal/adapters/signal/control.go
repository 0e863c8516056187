package signal

// heartbeat is a liveness probe only; no state changes.
func (ctl *Controller) handleHeartbeat(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "heartbeat-ack"})
}
