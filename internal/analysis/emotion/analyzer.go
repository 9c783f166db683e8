package emotion

import (
	"math"
	"strings"
)

// Label 表示TTS可以接受的情绪标签。
type Label string

const (
	Neutral Label = "neutral"
	Happy   Label = "happy"
	Sad     Label = "sad"
	Angry   Label = "angry"
	Excited Label = "excited"
	Tender  Label = "tender"
	Comfort Label = "comfort"
)

// Decision 给出情绪识别结果以及推荐情绪强度。
type Decision struct {
	Emotion Label
	Scale   float32
	Score   int
}

// 关键词覆盖英文、印地语与常见 Hinglish 写法。
var keywordBuckets = map[Label][]string{
	Happy: {
		"glad", "happy", "great", "wonderful", "proud of you", "awesome", "amazing", "love that",
		"khush", "badhiya", "bahut accha", "खुश", "बढ़िया", "शानदार",
	},
	Sad: {
		"sad", "lonely", "alone", "cry", "crying", "depressed", "hopeless", "tired of", "miss",
		"hurt", "upset", "udaas", "akela", "dukhi", "उदास", "अकेला", "दुखी", "रोना",
	},
	Angry: {
		"angry", "furious", "annoyed", "hate", "frustrated", "fed up", "gussa", "pareshan", "गुस्सा", "परेशान",
	},
	Excited: {
		"can't wait", "so excited", "excited", "yay", "passed", "selected", "finally did it",
	},
	Tender: {
		"gently", "slowly", "softly", "relax", "calm", "breathe", "rest", "take a break",
		"dheere", "aaram", "आराम", "धीरे",
	},
	Comfort: {
		"i'm here", "i am here", "you're not alone", "you are not alone", "it's okay", "it is okay",
		"that sounds hard", "that must be hard", "i understand", "don't worry", "take your time",
		"main hoon na", "chinta mat", "मैं हूँ", "चिंता मत",
	},
}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// Analyze 根据用户话语与AI回复推断应使用的语音情绪。
func Analyze(userUtterance, aiUtterance string) Decision {
	userScore := scoreText(userUtterance)
	aiScore := scoreText(aiUtterance)

	finalScore := aiScore
	// 若AI回复缺少明显情感，则根据用户情绪进行映射，从而提供安抚或共情。
	if finalScore.Score == 0 && userScore.Score > 0 {
		finalScore = coerceEmotionFromUser(userScore)
	}
	// 陪伴场景下回复不应跟着用户一起难过或生气
	if finalScore.Emotion == Sad || finalScore.Emotion == Angry {
		finalScore = coerceEmotionFromUser(finalScore)
	}

	if finalScore.Score == 0 {
		return Decision{Emotion: Neutral, Scale: 3, Score: 0}
	}

	scale := 2 + float32(finalScore.Score)/4 // 基础为2，强度随得分提升
	if finalScore.Emotion == Excited {
		scale += 1
	}
	if finalScore.Emotion == Comfort || finalScore.Emotion == Tender {
		scale = float32(math.Min(3.5, float64(scale)))
	}

	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return Decision{Emotion: finalScore.Emotion, Scale: scale, Score: finalScore.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	bestLabel := Neutral
	bestScore := 0
	for _, label := range labelOrder {
		if s := scores[label]; s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}

	return Decision{Emotion: bestLabel, Score: bestScore}
}

// labelOrder 同分时靠前的标签优先，保证结果稳定
var labelOrder = []Label{Comfort, Tender, Happy, Excited, Sad, Angry}

func coerceEmotionFromUser(user Decision) Decision {
	switch user.Emotion {
	case Sad, Angry:
		return Decision{Emotion: Comfort, Score: user.Score}
	case Excited:
		return Decision{Emotion: Excited, Score: user.Score}
	case Happy:
		return Decision{Emotion: Happy, Score: user.Score}
	case Tender, Comfort:
		return Decision{Emotion: Tender, Score: user.Score}
	default:
		return user
	}
}
