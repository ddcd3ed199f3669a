package hook

// reportParams is sent by a client once, immediately after connecting, to
// announce itself and hand over its initial subscription set.
type reportParams struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Version       string   `json:"version"`
	InitialTopics []string `json:"initialTopics"`
}

// reportReply answers a report call with the broker's final say on naming
// and version, used to detect a version mismatch before the client proceeds.
type reportReply struct {
	AssignedName  string `json:"assignedName"`
	AssignedID    string `json:"assignedId"`
	ServerVersion string `json:"serverVersion"`
}

// messageParams carries an already wire-qualified topic and its payload in
// either direction.
type messageParams struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// hasEventParams carries a qualified topic as pre-split segments, so the
// receiving peer can match it against its own tree without re-parsing a
// delimiter convention it does not need to share verbatim.
type hasEventParams struct {
	Parts []string `json:"parts"`
}

// PeerInfo is the display-ready, JSON-safe shape of one registered peer,
// returned by the broker to any caller of "listPeers".
type PeerInfo struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	RemoteAddress string   `json:"remoteAddress"`
	RemotePort    int      `json:"remotePort"`
	Subscriptions []string `json:"subscriptions"`
}

type listPeersReply struct {
	Peers []PeerInfo `json:"peers"`
}
