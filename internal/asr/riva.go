package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rbright/vcinteract/internal/audio"
	"github.com/rbright/vcinteract/internal/recognition"
	"github.com/rbright/vcinteract/internal/resilience"
	"github.com/rbright/vcinteract/internal/riva"
)

// RivaRecognizer dials Riva per utterance. Unreachable or unavailable
// servers are retried Retries times.
type RivaRecognizer struct {
	Conn         riva.Config
	LanguageCode string
	Model        string
	Punctuation  bool
	Retries      int
	Logger       *slog.Logger
}

// ErrDial marks failures to reach the Riva endpoint.
var ErrDial = errors.New("riva unreachable")

func (r RivaRecognizer) Recognize(ctx context.Context, pcm []byte, maxAlternatives int) ([]string, error) {
	var alts []riva.Alternative
	err := resilience.Retry(ctx, resilience.Config{
		MaxRetries: r.Retries,
		Logger:     r.Logger,
		IsRetryable: func(err error) bool {
			return errors.Is(err, ErrDial) || resilience.IsRetryableGRPC(err)
		},
	}, func() error {
		var err error
		alts, err = r.recognizeOnce(ctx, pcm, maxAlternatives)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		out = append(out, alt.Transcript)
	}
	return out, nil
}

func (r RivaRecognizer) recognizeOnce(ctx context.Context, pcm []byte, maxAlternatives int) ([]riva.Alternative, error) {
	client, err := riva.Dial(ctx, r.Conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDial, err)
	}
	defer func() { _ = client.Close() }()

	return client.Recognize(ctx, pcm, riva.RecognitionConfig{
		SampleRateHertz:      audio.SampleRate,
		LanguageCode:         r.LanguageCode,
		MaxAlternatives:      int32(maxAlternatives),
		AutomaticPunctuation: r.Punctuation,
		Model:                r.Model,
	})
}

// Classify maps transport and gRPC failures onto recognizer error codes.
func Classify(err error) recognition.Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return recognition.CodeNetworkTimeout
	case errors.Is(err, context.Canceled):
		return recognition.CodeClient
	case errors.Is(err, ErrDial):
		return recognition.CodeNetwork
	}

	st, ok := status.FromError(err)
	if !ok {
		return recognition.CodeUnknown
	}
	switch st.Code() {
	case codes.Unavailable:
		return recognition.CodeNetwork
	case codes.DeadlineExceeded:
		return recognition.CodeNetworkTimeout
	case codes.ResourceExhausted:
		return recognition.CodeBusy
	case codes.PermissionDenied, codes.Unauthenticated:
		return recognition.CodePermissions
	case codes.InvalidArgument:
		return recognition.CodeClient
	case codes.NotFound:
		return recognition.CodeNoMatch
	case codes.Internal, codes.Unknown, codes.Unimplemented:
		return recognition.CodeServer
	default:
		return recognition.CodeUnknown
	}
}
