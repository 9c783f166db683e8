package sentiment

import (
	"strings"
	"unicode"
)

// Label 情感分类标签。
type Label string

const (
	Negative Label = "negative"
	Neutral  Label = "neutral"
	Positive Label = "positive"
)

const (
	// divisor 把词表极性总和归一化到 [-1,1] 附近，再做截断。
	divisor = 5.0

	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Result 单条消息的情感评分结果。
type Result struct {
	Score       float64
	Label       Label
	Sum         int
	Comparative float64
	Tokens      []string
	Positive    []string
	Negative    []string
}

// Analyze scores text against the lexicon. It is total: empty or
// unrecognised input scores 0 and is labelled neutral.
func Analyze(text string) Result {
	tokens := tokenize(text)
	res := Result{Tokens: tokens}

	for i, tok := range tokens {
		polarity, ok := afinn[tok]
		if !ok {
			continue
		}
		if i > 0 && isNegator(tokens[i-1]) {
			polarity = -polarity
		}
		res.Sum += polarity
		if polarity > 0 {
			res.Positive = append(res.Positive, tok)
		} else if polarity < 0 {
			res.Negative = append(res.Negative, tok)
		}
	}

	if len(tokens) > 0 {
		res.Comparative = float64(res.Sum) / float64(len(tokens))
	}
	res.Score = ScoreFor(res.Sum)
	res.Label = LabelFor(res.Score)
	return res
}

// ScoreFor normalises a lexicon polarity sum to the [-1,1] mood range.
func ScoreFor(sum int) float64 {
	score := float64(sum) / divisor
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// LabelFor maps a score to its label. Both thresholds are strict, so ±0.1
// itself is neutral.
func LabelFor(score float64) Label {
	switch {
	case score > positiveThreshold:
		return Positive
	case score < negativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

func tokenize(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '\'':
			return r
		case r == '’':
			return '\''
		default:
			return ' '
		}
	}, lowered)

	fields := strings.Fields(cleaned)
	for i, f := range fields {
		fields[i] = strings.Trim(f, "'")
	}
	return fields
}

func isNegator(token string) bool {
	_, ok := negators[token]
	return ok
}
