package recognition

import "strings"

// Command is a voice command recognized on the fallback path.
type Command string

const (
	CommandCapturePhoto Command = "capture_photo"
	CommandRecordVideo  Command = "record_video"
)

// Notice is the progress message shown when the command is dispatched.
func (c Command) Notice() string {
	switch c {
	case CommandCapturePhoto:
		return "Voice command: Capture photo"
	case CommandRecordVideo:
		return "Voice command: Record video"
	default:
		return ""
	}
}

var commandTable = []struct {
	keyword string
	command Command
}{
	{keyword: "capture", command: CommandCapturePhoto},
	{keyword: "record", command: CommandRecordVideo},
}

// DetectCommand matches the lower-cased transcript against the command
// keywords in table order.
func DetectCommand(transcript string) (Command, bool) {
	lowered := strings.ToLower(transcript)
	for _, entry := range commandTable {
		if strings.Contains(lowered, entry.keyword) {
			return entry.command, true
		}
	}
	return "", false
}
