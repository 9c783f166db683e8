package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/speech"
)

// DefaultEndpoint 火山引擎单向流式 TTS 地址
const DefaultEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

const (
	defaultResource = "volc.service_type.10029"
	megaResource    = "volc.megatts.default"
	seedResource    = "seed-tts-2.0"
)

const resourceMismatchMsg = "resource ID is mismatched with speaker related resource"

var (
	ErrEmptyText   = errors.New("tts text is empty")
	ErrEmptyAudio  = errors.New("tts audio is empty")
	ErrCredentials = errors.New("volcengine speech config is missing app id or access token")
)

// TTSClient 火山引擎 TTS WebSocket 客户端
type TTSClient struct {
	cfg    speech.Config
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewTTSClient builds a client; an empty endpoint uses DefaultEndpoint.
func NewTTSClient(cfg speech.Config, logger *zap.Logger) *TTSClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TTSClient{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		logger: logger,
	}
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

type ttsRequestBody struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format       string  `json:"format"`
	SampleRate   int     `json:"sample_rate"`
	SpeedRatio   float32 `json:"speed_ratio,omitempty"`
	VolumeRatio  float32 `json:"volume_ratio,omitempty"`
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotion_scale,omitempty"`
}

// Synthesize tries each speaker/resource pair until one is accepted.
func (c *TTSClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	appID, token := strings.TrimSpace(c.cfg.AppID), strings.TrimSpace(c.cfg.AccessToken)
	if appID == "" || token == "" {
		return nil, ErrCredentials
	}

	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = c.cfg.Format
	}
	if format == "" || format == "wav" {
		format = "mp3"
	}

	speakers := speakerCandidates(req.Voice, c.cfg.VoiceFor("en"))
	if len(speakers) == 0 {
		return nil, fmt.Errorf("no tts voice configured for language %q", req.Language)
	}

	var lastMismatch error
	for _, speaker := range speakers {
		resources := resourceCandidates(speaker)
		if c.cfg.ResourceID != "" {
			resources = []string{c.cfg.ResourceID}
		}

		for i, resourceID := range resources {
			resp, err := c.synthesizeOnce(ctx, req, appID, token, speaker, format, resourceID)
			if err == nil {
				if i > 0 || speaker != speakers[0] {
					c.logger.Info("tts fallback succeeded", zap.String("voice", speaker), zap.String("resource", resourceID))
				}
				resp.Language = req.Language
				return resp, nil
			}
			if !isResourceMismatch(err) {
				return nil, err
			}
			c.logger.Warn("tts resource mismatch", zap.String("voice", speaker), zap.String("resource", resourceID), zap.Error(err))
			lastMismatch = err
		}
	}
	return nil, lastMismatch
}

func (c *TTSClient) synthesizeOnce(ctx context.Context, req *speech.TTSRequest, appID, token, speaker, format, resourceID string) (*speech.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect tts websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			c.logger.Debug("tts connected", zap.String("logid", logID))
		}
	}

	// ReadMessage 不感知 ctx，取消时直接关闭连接
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	body, err := json.Marshal(c.buildRequest(req, speaker, format))
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}
	frame, err := NewRequestFrame(body, NoCompression)
	if err != nil {
		return nil, err
	}
	raw, err := frame.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("read tts response: %w", err)
		}

		msg, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode tts frame: %w", err)
		}

		switch msg.Type {
		case ErrorMessage:
			payload, _ := msg.Body()
			return nil, fmt.Errorf("tts error %d: %s", msg.ErrorCode, string(payload))

		case AudioOnlyServerResponse:
			chunk, err := msg.Body()
			if err != nil {
				return nil, fmt.Errorf("decompress audio chunk: %w", err)
			}
			audio.Write(chunk)

		case FullServerResponse:
			payload, err := msg.Body()
			if err != nil {
				return nil, fmt.Errorf("decompress tts payload: %w", err)
			}

			var serverResp ttsServerMessage
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &serverResp); err != nil {
					c.logger.Debug("tts payload is not json", zap.Error(err))
				} else {
					if serverResp.Code != 0 && serverResp.Code != 3000 {
						return nil, fmt.Errorf("tts api error %d: %s", serverResp.Code, serverResp.Message)
					}
					if serverResp.ReqID != "" {
						reqID = serverResp.ReqID
					}
					if serverResp.Addition.Duration != "" {
						if ms, err := strconv.ParseInt(serverResp.Addition.Duration, 10, 64); err == nil {
							duration = ms
						}
					}
					if serverResp.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(serverResp.Data)
						if err != nil {
							return nil, fmt.Errorf("decode base64 audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			if msg.hasEvent() && msg.Event == EventSessionFailed {
				return nil, fmt.Errorf("tts session failed: %s", string(payload))
			}

			finished := (msg.hasEvent() && msg.Event == EventSessionFinished) || msg.IsLast() || serverResp.Sequence < 0
			if !finished {
				continue
			}
			if audio.Len() == 0 {
				return nil, ErrEmptyAudio
			}
			if reqID == "" {
				reqID = connectID
			}
			return &speech.TTSResponse{
				AudioData: audio.Bytes(),
				Format:    format,
				Voice:     speaker,
				Duration:  duration,
				RequestID: reqID,
				CreatedAt: time.Now(),
			}, nil

		default:
			c.logger.Debug("unexpected tts frame", zap.Uint8("type", uint8(msg.Type)))
		}
	}
}

func (c *TTSClient) buildRequest(req *speech.TTSRequest, speaker, format string) *ttsRequestBody {
	body := &ttsRequestBody{}

	body.User.UID = strings.TrimSpace(req.UserID)
	if body.User.UID == "" {
		body.User.UID = uuid.NewString()
	}

	body.ReqParams.Speaker = speaker
	body.ReqParams.Text = req.Text
	body.ReqParams.AudioParams.Format = format
	body.ReqParams.AudioParams.SampleRate = c.cfg.SampleRate
	if body.ReqParams.AudioParams.SampleRate <= 0 {
		body.ReqParams.AudioParams.SampleRate = 24000
	}
	if c.cfg.Speed > 0 && c.cfg.Speed != 1.0 {
		body.ReqParams.AudioParams.SpeedRatio = c.cfg.Speed
	}
	if c.cfg.Volume > 0 && c.cfg.Volume != 1.0 {
		body.ReqParams.AudioParams.VolumeRatio = c.cfg.Volume
	}
	if req.Emotion != "" {
		body.ReqParams.AudioParams.Emotion = req.Emotion
		body.ReqParams.AudioParams.EmotionScale = req.EmotionScale
	}
	body.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return body
}

// resourceCandidates 根据音色名推断可用的资源 ID，按优先级排列。
func resourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "venus", "jupiter", "saturn", "neptune", "mercury", "pluto", "mars"} {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}
	return []string{defaultResource, seedResource}
}

func speakerCandidates(requested, fallback string) []string {
	var out []string
	for _, s := range []string{requested, fallback} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if strings.EqualFold(existing, s) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

func isResourceMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), resourceMismatchMsg)
}
