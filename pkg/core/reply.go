package core

// PingReply is the body answered to PING.
type PingReply struct {
	Connected bool `json:"connected"`
}

// CaptureReply is the body answered to a successful CAPTURE.
type CaptureReply struct {
	Success    bool   `json:"success"`
	RecordGUID string `json:"recordGuid,omitempty"`
	NodeGUID   string `json:"nodeGuid,omitempty"`
}

// PageRef is one SEARCH hit.
type PageRef struct {
	GUID       string `json:"guid"`
	Name       string `json:"name"`
	Collection string `json:"collection,omitempty"`
}
