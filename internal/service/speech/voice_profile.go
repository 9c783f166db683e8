package speech

import (
	"strings"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
)

var emotionVoiceWhitelist = map[string]struct{}{
	"en_female_candice_emo_v2_mars_bigtts": {},
	"en_female_skye_emo_v2_mars_bigtts":    {},
	"en_male_glen_emo_v2_mars_bigtts":      {},
	"en_male_corey_emo_v2_mars_bigtts":     {},
}

// ComputeEmotionParameters 根据语音与情绪分析结果计算TTS情绪参数。
func ComputeEmotionParameters(voice string, decision emotion.Decision) (enable bool, label string, scale float32) {
	if decision.Emotion == emotion.Neutral || decision.Score <= 0 {
		return false, "", 0
	}
	if !supportsEmotion(voice) {
		return false, "", 0
	}

	finalScale := decision.Scale
	if finalScale <= 0 {
		finalScale = 3
	}
	if finalScale < 1 {
		finalScale = 1
	}
	if finalScale > 5 {
		finalScale = 5
	}
	return true, string(decision.Emotion), finalScale
}

// supportsEmotion 只有情感版音色接受 emotion 参数
func supportsEmotion(voice string) bool {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if normalized == "" {
		return false
	}
	if _, ok := emotionVoiceWhitelist[normalized]; ok {
		return true
	}
	return strings.Contains(normalized, "_emo_")
}
