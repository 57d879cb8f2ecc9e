package indicator

type messages struct {
	recordingStarted  string
	recordingComplete string
	listening         string
	errorText         string
}

func defaultMessages() messages {
	return messages{
		recordingStarted:  "Recording starting...",
		recordingComplete: "Recording complete",
		listening:         "Listening...",
		errorText:         "Something went wrong",
	}
}
