package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/utils/log"
)

type Config struct {
	Language   string
	SampleRate int
	Encoding   string
	Timeout    time.Duration
}

type GoogleSpeech struct {
	client *speech.Client
	cfg    Config
}

func NewGoogleSpeech(ctx context.Context, cfg Config) (*GoogleSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google speech client: %w", err)
	}
	return &GoogleSpeech{
		client: client,
		cfg:    cfg,
	}, nil
}

var _ domain.Transcriber = (*GoogleSpeech)(nil)

func (g *GoogleSpeech) Close() error {
	return g.client.Close()
}

// Transcribe streams audio chunks to the recognizer in single-utterance mode
// and returns the first final transcript.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio <-chan []byte) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: creating streaming client: %v", domain.ErrServiceUnreachable, err)
	}
	return transcribeStream(ctx, stream, g.cfg, audio)
}

// recognizeStream is the subset of speechpb.Speech_StreamingRecognizeClient in use.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

func transcribeStream(ctx context.Context, stream recognizeStream, cfg Config, audio <-chan []byte) (string, error) {
	err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding(cfg.Encoding),
					SampleRateHertz: int32(cfg.SampleRate),
					LanguageCode:    cfg.Language,
				},
				SingleUtterance: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: sending streaming config: %v", domain.ErrServiceUnreachable, err)
	}

	stop := make(chan struct{})
	defer close(stop)
	sendErr := make(chan error, 1)
	go func() {
		sendErr <- pump(ctx, stream, audio, stop)
	}()

	var transcript strings.Builder
	// latest interim hypothesis, used when the deadline hits before a final result
	var interim string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() == nil {
				return "", fmt.Errorf("%w: receiving results: %v", domain.ErrServiceUnreachable, err)
			}
			if strings.TrimSpace(interim) == "" {
				return "", fmt.Errorf("%w: no speech before timeout", domain.ErrUnrecognizedAudio)
			}
			transcript.WriteString(interim)
			break
		}
		if st := resp.GetError(); st != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrServiceUnreachable, st.GetMessage())
		}
		if resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
			log.WithCtx(ctx).Debug("end of utterance")
		}

		final := false
		for _, result := range resp.GetResults() {
			if len(result.GetAlternatives()) == 0 {
				continue
			}
			text := result.GetAlternatives()[0].GetTranscript()
			if !result.GetIsFinal() {
				interim = text
				continue
			}
			transcript.WriteString(text)
			final = true
		}
		if final {
			break
		}
	}

	select {
	case err := <-sendErr:
		if err != nil {
			log.WithCtx(ctx).Warn("audio pump stopped with error", zap.Error(err))
		}
	default:
	}

	text := strings.TrimSpace(transcript.String())
	if text == "" {
		return "", domain.ErrUnrecognizedAudio
	}
	return text, nil
}

// pump forwards audio chunks until the channel closes, then half-closes the stream.
func pump(ctx context.Context, stream recognizeStream, audio <-chan []byte, stop <-chan struct{}) error {
	for {
		select {
		case chunk, ok := <-audio:
			if !ok {
				return stream.CloseSend()
			}
			err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: chunk,
				},
			})
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("sending audio chunk: %w", err)
			}
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func encoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(name) {
	case "linear16":
		return speechpb.RecognitionConfig_LINEAR16
	case "flac":
		return speechpb.RecognitionConfig_FLAC
	case "ogg_opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "webm_opus":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
