package config

const (
	defaultPhotoCmd  = "ffmpeg -loglevel error -y -f v4l2 -i /dev/video0 -frames:v 1 {output}"
	defaultVideoCmd  = "ffmpeg -loglevel error -y -f v4l2 -i /dev/video0 -f pulse -i default -c:v libx264 -c:a aac {output}"
	defaultSpeechCmd = "espeak-ng --stdin"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:                  "http://127.0.0.1:8000/",
			CallTimeoutMS:            45000,
			ConnectTimeoutMS:         15000,
			ReadTimeoutMS:            30000,
			WriteTimeoutMS:           30000,
			MaxIdleConns:             5,
			IdleTimeoutMS:            30000,
			RetryOnConnectionFailure: true,
		},
		Capture: CaptureConfig{
			PhotoCmd:     CommandConfig{Raw: defaultPhotoCmd, Argv: mustParseArgv(defaultPhotoCmd)},
			VideoCmd:     CommandConfig{Raw: defaultVideoCmd, Argv: mustParseArgv(defaultVideoCmd)},
			VideoLimitMS: 5000,
			BufferSize:   8192,
		},
		Recognition: RecognitionConfig{
			RivaGRPC:             "127.0.0.1:50051",
			LanguageCode:         "en-US",
			AutomaticPunctuation: true,
			Input:                "default",
			FallbackInput:        "default",
			MaxListenMS:          30000,
			SilenceThreshold:     0.02,
			Primary:              ListenWindow{MinMS: 7000, SilenceMS: 7000, MaxAlternatives: 5},
			Fallback:             ListenWindow{MinMS: 10000, SilenceMS: 7000, MaxAlternatives: 1},
		},
		Speech: SpeechConfig{
			Cmd:       CommandConfig{Raw: defaultSpeechCmd, Argv: mustParseArgv(defaultSpeechCmd)},
			ChunkSize: 3900,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "vcinteract",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
	}
}
