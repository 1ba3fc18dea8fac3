package core

import "encoding/json"

// Notification is the "event" envelope a plugin's push_event call
// eventually produces on a session's event queue.
// Field names mirror the wire protocol's lowercase janus_* vocabulary.
type Notification struct {
	Janus       string      `json:"janus"`
	Sender      uint64      `json:"sender"`
	Transaction *string     `json:"transaction,omitempty"`
	PluginData  *PluginData `json:"plugindata,omitempty"`
	Jsep        *Jsep       `json:"jsep,omitempty"`
}

// PluginData wraps an opaque plugin-produced payload with the name of
// the plugin package that produced it, so a client with several
// handles open can tell which plugin an event belongs to.
type PluginData struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

// Jsep carries the SDP offer/answer attached to a notification.
type Jsep struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}
