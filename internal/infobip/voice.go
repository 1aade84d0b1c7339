package infobip

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"go.uber.org/zap"
)

const defaultVoiceLanguage = "en"

// VoiceDispatcher places text-to-speech calls, one vendor call per recipient.
type VoiceDispatcher struct {
	*dispatcher
}

func NewVoiceDispatcher(client *Client, opts ...Option) (*VoiceDispatcher, error) {
	d, err := newDispatcher(client, domain.ChannelVoice, opts)
	if err != nil {
		return nil, err
	}
	return &VoiceDispatcher{dispatcher: d}, nil
}

func (d *VoiceDispatcher) Channel() domain.ChannelID { return domain.ChannelVoice }

func (d *VoiceDispatcher) Dispatch(ctx context.Context, voice domain.Voice, dc domain.DispatchContext) ([]domain.DispatchResult, error) {
	if d == nil || d.dispatcher == nil {
		return nil, fmt.Errorf("voice dispatcher is not initialized")
	}
	if err := voice.Validate(); err != nil {
		return nil, fmt.Errorf("invalid voice message: %w", err)
	}
	dc = d.normalize(dc)
	language := dc.TwoLetterLanguage(defaultVoiceLanguage)

	results, err := d.forEachRecipient(ctx, dc, voice.To, func(ctx context.Context, to domain.Address) ([]domain.DispatchResult, error) {
		if voice.Properties.Single {
			request := buildSingleVoiceRequest(voice, to, language)
			return d.exchange(ctx, dc, to.Value, voiceSinglePath, func(ctx context.Context) (*resty.Response, error) {
				return d.client.postJSON(ctx, voiceSinglePath, request)
			})
		}

		messageID := d.newID()
		notifyURL, err := resolveNotifyURL(ctx, dc, notifySource{
			messageResolver:       voice.Properties.NotifyURLResolver,
			communicationResolver: voice.DeliveryReportCallbackURLResolver,
			static:                voice.Properties.NotifyURL,
		}, d.notifyURL, messageID)
		if err != nil {
			return nil, err
		}

		request := buildVoiceRequest(voice, to, messageID, d.newID(), language, notifyURL)
		return d.exchange(ctx, dc, to.Value, voiceAdvancedPath, func(ctx context.Context) (*resty.Response, error) {
			return d.client.postJSON(ctx, voiceAdvancedPath, request)
		})
	})
	if err != nil {
		d.logger.Warn("voice dispatch stopped", zap.Int("results", len(results)), zap.Error(err))
	}
	return results, err
}

func voiceTypeFor(voice domain.Voice) *voiceTypeDTO {
	vt := voice.EffectiveVoiceType()
	if vt.Gender == "" && vt.Name == "" {
		return nil
	}
	return &voiceTypeDTO{Gender: vt.Gender, Name: vt.Name}
}

func buildVoiceRequest(voice domain.Voice, to domain.Address, messageID, bulkID, language, notifyURL string) voiceRequest {
	p := voice.Properties
	return voiceRequest{
		BulkID: bulkID,
		Messages: []voiceMessage{{
			Destinations:         []destination{{To: strings.TrimSpace(to.Value), MessageID: messageID}},
			From:                 strings.TrimSpace(voice.From.Value),
			Text:                 voice.Message,
			AudioFileURL:         strings.TrimSpace(p.AudioFileURL),
			Language:             language,
			Voice:                voiceTypeFor(voice),
			NotifyURL:            notifyURL,
			NotifyContentVersion: p.NotifyContentVersion,
			CallTimeout:          p.CallTimeout,
			RingTimeout:          p.RingTimeout,
			Pause:                p.Pause,
			MaxDtmf:              p.MaxDtmf,
			DtmfTimeout:          p.DtmfTimeout,
			Record:               p.Record,
			MachineDetection:     string(p.MachineDetection),
			CallbackData:         p.CallbackData,
			ValidityPeriod:       p.ValidityPeriod,
			EntityID:             p.EntityID,
			ApplicationID:        p.ApplicationID,
		}},
	}
}

func buildSingleVoiceRequest(voice domain.Voice, to domain.Address, language string) singleVoiceRequest {
	return singleVoiceRequest{
		Text:     voice.Message,
		Language: language,
		From:     strings.TrimSpace(voice.From.Value),
		To:       strings.TrimSpace(to.Value),
		Voice:    voiceTypeFor(voice),
	}
}
