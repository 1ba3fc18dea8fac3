package core

import "encoding/json"

// Plugin is the capability record every loaded plugin module must
// satisfy in full: the host rejects a plugin missing any
// entry point. Metadata getters come first, then lifecycle, then the
// per-handle entry points a message or media event may invoke.
type Plugin interface {
	// Metadata
	Version() int
	VersionString() string
	Name() string
	Description() string
	Package() string

	// Lifecycle
	Init(callbacks *Callbacks, configPath string) error
	Destroy()

	// Per-handle lifecycle
	CreateSession(handle *Handle) error
	DestroySession(handle *Handle) error
	HangupMedia(handle *Handle)
	SetupMedia(handle *Handle)

	// Messaging
	HandleMessage(handle *Handle, transaction string, body json.RawMessage, sdpType, sdp string)

	// Media ingress
	IncomingRTP(handle *Handle, video bool, buf []byte)
	IncomingRTCP(handle *Handle, video bool, buf []byte)
}
