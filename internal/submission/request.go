// Package submission posts transcripts, optionally with the captured photo or
// video, to the interaction server.
package submission

import (
	"strings"

	"github.com/rbright/vcinteract/internal/artifact"
)

// Kind selects the endpoint and multipart shape.
type Kind string

const (
	KindText      Kind = "text"
	KindImageText Kind = "image_text"
	KindVideoText Kind = "video_text"
)

// Endpoint is the path appended to the server base URL.
func (k Kind) Endpoint() string {
	switch k {
	case KindImageText:
		return "image-text/"
	case KindVideoText:
		return "video-text/"
	default:
		return "text/"
	}
}

func (k Kind) fileField() (field string, contentType string) {
	switch k {
	case KindImageText:
		return "image", "image/jpeg"
	case KindVideoText:
		return "video", "video/mp4"
	default:
		return "", ""
	}
}

// Request is one immutable submission.
type Request struct {
	Kind         Kind
	Text         string
	ArtifactPath string
}

// NewRequest picks the request kind from the active artifact: video wins,
// then photo, else text only.
func NewRequest(text string, current *artifact.Artifact) Request {
	req := Request{Kind: KindText, Text: strings.TrimSpace(text)}
	if current == nil || current.LocalPath == "" {
		return req
	}
	switch current.Kind {
	case artifact.KindVideo:
		req.Kind = KindVideoText
		req.ArtifactPath = current.LocalPath
	case artifact.KindPhoto:
		req.Kind = KindImageText
		req.ArtifactPath = current.LocalPath
	}
	return req
}
