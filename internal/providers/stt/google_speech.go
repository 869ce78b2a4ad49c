package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client

	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c, SampleRateHz: 16000}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// EncodingFor maps an upload content type to the recognizer encoding.
// Unknown types are left to the service to detect.
func EncodingFor(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch ct {
	case "audio/wav", "audio/x-wav", "audio/l16":
		return speechpb.RecognitionConfig_LINEAR16
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// language example: "en-US", "id-ID"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, contentType, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   EncodingFor(contentType),
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	if cfg.Encoding == speechpb.RecognitionConfig_LINEAR16 {
		cfg.SampleRateHertz = g.SampleRateHz
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	// Results are consecutive segments; take the top alternative of each.
	var parts []string
	var confSum float64
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 || r.Alternatives[0].Transcript == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		confSum += float64(r.Alternatives[0].Confidence)
	}
	if len(parts) == 0 {
		return "", 0, nil
	}

	return strings.Join(parts, " "), confSum / float64(len(parts)), nil
}
