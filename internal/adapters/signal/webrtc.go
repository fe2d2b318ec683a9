package signal

import (
	"encoding/json"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/core"
)

// The SDP and ICE payloads below stay opaque json.RawMessage end to end: the
// server brokers them between browsers and never parses their contents.

func (ctl *Controller) handleOffer(id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type   string          `json:"type"`
		Target string          `json:"target"`
		Offer  json.RawMessage `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" || len(p.Offer) == 0 {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Relay.SendOffer(id, connID, core.ConnectionID(p.Target), p.Offer)
}

func (ctl *Controller) handleAnswer(id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type   string          `json:"type"`
		Target string          `json:"target"`
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" || len(p.Answer) == 0 {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Relay.SendAnswer(id, connID, core.ConnectionID(p.Target), p.Answer)
}

func (ctl *Controller) handleCandidate(connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type      string          `json:"type"`
		Target    string          `json:"target"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" || len(p.Candidate) == 0 {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Relay.SendIceCandidate(connID, core.ConnectionID(p.Target), p.Candidate)
}
