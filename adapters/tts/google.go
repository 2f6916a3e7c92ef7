package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/satriahrh/nutriplanner/domain"
)

// maxInputBytes is the synthesis request limit of the API.
const maxInputBytes = 5000

type GoogleTTS struct {
	client   *texttospeech.Client
	language string
	gender   texttospeechpb.SsmlVoiceGender
}

func NewGoogleTTS(ctx context.Context, language, gender string) (*GoogleTTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	return &GoogleTTS{
		client:   client,
		language: language,
		gender:   voiceGender(gender),
	}, nil
}

var _ domain.Synthesizer = (*GoogleTTS)(nil)

func (g *GoogleTTS) Close() error {
	return g.client.Close()
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, synthesisRequest(text, g.language, g.gender))
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	return resp.GetAudioContent(), nil
}

func synthesisRequest(text, language string, gender texttospeechpb.SsmlVoiceGender) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: truncate(text, maxInputBytes),
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			SsmlGender:   gender,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}

func voiceGender(name string) texttospeechpb.SsmlVoiceGender {
	switch strings.ToLower(name) {
	case "male":
		return texttospeechpb.SsmlVoiceGender_MALE
	case "female":
		return texttospeechpb.SsmlVoiceGender_FEMALE
	case "neutral":
		return texttospeechpb.SsmlVoiceGender_NEUTRAL
	default:
		return texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
