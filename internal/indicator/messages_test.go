package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMessages(t *testing.T) {
	msg := defaultMessages()
	require.Equal(t, "Recording starting...", msg.recordingStarted)
	require.Equal(t, "Recording complete", msg.recordingComplete)
	require.Equal(t, "Listening...", msg.listening)
	require.Equal(t, "Something went wrong", msg.errorText)
}
