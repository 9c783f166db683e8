package speech

import "time"

// Config 语音合成配置
type Config struct {
	AppID       string            // 火山引擎 APP ID
	AccessToken string            // 火山引擎 Access Token
	Endpoint    string            // TTS WebSocket 地址
	ResourceID  string            // 固定资源 ID，留空时按音色推断
	Voices      map[string]string // 语言 -> 音色
	Speed       float32
	Volume      float32
	Format      string
	SampleRate  int
	Timeout     time.Duration
}

// VoiceFor returns the configured voice for a language, falling back to en.
func (c Config) VoiceFor(language string) string {
	if v, ok := c.Voices[language]; ok && v != "" {
		return v
	}
	return c.Voices["en"]
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	UserID       string
	Text         string
	Voice        string
	Language     string
	Format       string
	Emotion      string  // 留空则不传情绪参数
	EmotionScale float32 // 1-5
}

// TTSResponse 语音合成结果
type TTSResponse struct {
	AudioData []byte
	Format    string
	Voice     string
	Language  string
	Duration  int64 // milliseconds
	RequestID string
	CreatedAt time.Time
}
