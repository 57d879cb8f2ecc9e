// Package ipc carries newline-delimited JSON commands over the runtime unix
// socket owned by `vcinteract serve`.
package ipc

// Commands accepted by the serving orchestrator.
const (
	CommandStatus = "status"
	CommandPhoto  = "photo"
	CommandRecord = "record"
	CommandListen = "listen"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Session  string `json:"session,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Controls bool   `json:"controls_enabled"`
	Pending  string `json:"pending_request,omitempty"`
}
