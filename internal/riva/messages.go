package riva

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from nvidia riva_asr.proto.
const (
	fieldRequestConfig = 1
	fieldRequestAudio  = 2

	fieldConfigEncoding          = 1
	fieldConfigSampleRate        = 2
	fieldConfigLanguage          = 3
	fieldConfigMaxAlternatives   = 4
	fieldConfigChannelCount      = 7
	fieldConfigAutoPunctuation   = 11
	fieldConfigModel             = 13
	fieldResponseResults         = 1
	fieldResultAlternatives      = 1
	fieldAlternativeTranscript   = 1
	fieldAlternativeConfidence   = 2
	encodingLinearPCM            = 1
	recognizeMethod              = "/nvidia.riva.asr.RivaSpeechRecognition/Recognize"
	defaultRecognizeSampleRateHz = 16000
)

// RecognitionConfig is the subset of riva RecognitionConfig vcinteract sends.
type RecognitionConfig struct {
	SampleRateHertz      int32
	LanguageCode         string
	MaxAlternatives      int32
	AutomaticPunctuation bool
	Model                string
}

// Alternative is one recognition hypothesis.
type Alternative struct {
	Transcript string
	Confidence float32
}

func encodeRecognizeRequest(cfg RecognitionConfig, audio []byte) []byte {
	var config []byte
	config = protowire.AppendTag(config, fieldConfigEncoding, protowire.VarintType)
	config = protowire.AppendVarint(config, encodingLinearPCM)

	rate := cfg.SampleRateHertz
	if rate <= 0 {
		rate = defaultRecognizeSampleRateHz
	}
	config = protowire.AppendTag(config, fieldConfigSampleRate, protowire.VarintType)
	config = protowire.AppendVarint(config, uint64(rate))

	if cfg.LanguageCode != "" {
		config = protowire.AppendTag(config, fieldConfigLanguage, protowire.BytesType)
		config = protowire.AppendString(config, cfg.LanguageCode)
	}
	if cfg.MaxAlternatives > 0 {
		config = protowire.AppendTag(config, fieldConfigMaxAlternatives, protowire.VarintType)
		config = protowire.AppendVarint(config, uint64(cfg.MaxAlternatives))
	}
	config = protowire.AppendTag(config, fieldConfigChannelCount, protowire.VarintType)
	config = protowire.AppendVarint(config, 1)
	if cfg.AutomaticPunctuation {
		config = protowire.AppendTag(config, fieldConfigAutoPunctuation, protowire.VarintType)
		config = protowire.AppendVarint(config, protowire.EncodeBool(true))
	}
	if cfg.Model != "" {
		config = protowire.AppendTag(config, fieldConfigModel, protowire.BytesType)
		config = protowire.AppendString(config, cfg.Model)
	}

	var req []byte
	req = protowire.AppendTag(req, fieldRequestConfig, protowire.BytesType)
	req = protowire.AppendBytes(req, config)
	req = protowire.AppendTag(req, fieldRequestAudio, protowire.BytesType)
	req = protowire.AppendBytes(req, audio)
	return req
}

// decodeRecognizeResponse flattens alternatives across results in order.
func decodeRecognizeResponse(data []byte) ([]Alternative, error) {
	var out []Alternative
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num != fieldResponseResults || typ != protowire.BytesType {
			return nil
		}
		return eachField(value, func(num protowire.Number, typ protowire.Type, value []byte) error {
			if num != fieldResultAlternatives || typ != protowire.BytesType {
				return nil
			}
			alt, err := decodeAlternative(value)
			if err != nil {
				return err
			}
			out = append(out, alt)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}
	return out, nil
}

func decodeAlternative(data []byte) (Alternative, error) {
	var alt Alternative
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldAlternativeTranscript && typ == protowire.BytesType:
			alt.Transcript = string(value)
		case num == fieldAlternativeConfidence && typ == protowire.Fixed32Type:
			bits, n := protowire.ConsumeFixed32(value)
			if n < 0 {
				return protowire.ParseError(n)
			}
			alt.Confidence = math.Float32frombits(bits)
		}
		return nil
	})
	return alt, err
}

// eachField walks one message level. For bytes fields value is the payload;
// for scalar fields value is the raw encoded scalar.
func eachField(data []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		var value []byte
		switch typ {
		case protowire.BytesType:
			payload, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return protowire.ParseError(m)
			}
			value = payload
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			value = data[:n]
		}
		if err := fn(num, typ, value); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
