package recognition

// Code is a recognizer failure reason.
type Code string

const (
	CodeEngineUnavailable Code = "engine_unavailable"
	CodeAudio             Code = "audio"
	CodeClient            Code = "client"
	CodePermissions       Code = "permissions"
	CodeNetwork           Code = "network"
	CodeNetworkTimeout    Code = "network_timeout"
	CodeNoMatch           Code = "no_match"
	CodeBusy              Code = "busy"
	CodeServer            Code = "server"
	CodeSpeechTimeout     Code = "speech_timeout"
	CodeUnknown           Code = "unknown"
)

var codeMessages = map[Code]string{
	CodeEngineUnavailable: "Speech recognition not available",
	CodeAudio:             "Audio recording error",
	CodeClient:            "Client side error",
	CodePermissions:       "Insufficient permissions",
	CodeNetwork:           "Network error",
	CodeNetworkTimeout:    "Network timeout",
	CodeNoMatch:           "No recognition match",
	CodeBusy:              "Recognition service busy",
	CodeServer:            "Server error",
	CodeSpeechTimeout:     "No speech input",
	CodeUnknown:           "Unknown error",
}

// Message maps the code to its human-readable reason.
func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return codeMessages[CodeUnknown]
}
