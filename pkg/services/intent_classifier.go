package services

import (
	"sort"
	"strings"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/models"
)

// intentRule は優先順位付きルールの1件。一致すればインテントを返す。
type intentRule struct {
	name  string
	match func(msg string, awaiting models.Awaiting) (models.Intent, bool)
}

// keywordRule は固定キーワードの部分一致ルール（汎用テーブルより先に評価）
type keywordRule struct {
	keywords []string
	intent   models.Intent
}

var hardcodedRules = []keywordRule{
	{keywords: []string{"under", "below"}, intent: models.IntentPriceFilter},
	{keywords: []string{"price for", "cost of"}, intent: models.IntentBulkOrders},
	{keywords: []string{"interested"}, intent: models.IntentInquiry},
}

// IntentClassifier はユーザーの発話をインテントに分類します。
// ルールは上から順に評価され、最初に一致したものが採用されます。
type IntentClassifier struct {
	intents []config.IntentPhrases // フレーズは長い順にソート済み
	cutoff  float64
	rules   []intentRule
}

// NewIntentClassifier は新しいIntentClassifierを生成します。
func NewIntentClassifier(cfg *config.IntentConfig) *IntentClassifier {
	intents := cfg.Intents()
	for i := range intents {
		phrases := intents[i].Phrases
		sort.SliceStable(phrases, func(a, b int) bool {
			return len(phrases[a]) > len(phrases[b])
		})
	}

	c := &IntentClassifier{
		intents: intents,
		cutoff:  cfg.IntentCutoff(),
	}
	c.rules = []intentRule{
		{name: "capture-in-progress", match: matchCaptureInProgress},
		{name: "hardcoded-keywords", match: matchHardcoded},
		{name: "exact-phrase", match: c.matchExact},
		{name: "substring", match: c.matchSubstring},
		{name: "fuzzy", match: c.matchFuzzy},
	}
	return c
}

// Classify は正規化済みでないテキストを受け取り、インテントを返す
func (c *IntentClassifier) Classify(text string, awaiting models.Awaiting) models.Intent {
	intent, _ := c.Explain(text, awaiting)
	return intent
}

// Explain はインテントと、それを決定したルール名を返す（ログ用）
func (c *IntentClassifier) Explain(text string, awaiting models.Awaiting) (models.Intent, string) {
	msg := NormalizeText(text)
	for _, rule := range c.rules {
		if intent, ok := rule.match(msg, awaiting); ok {
			return intent, rule.name
		}
	}
	return models.IntentFallback, "fallback"
}

// NormalizeText は小文字化と前後の空白除去を行う
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func matchCaptureInProgress(_ string, awaiting models.Awaiting) (models.Intent, bool) {
	if awaiting.InCapture() {
		return models.IntentInquiry, true
	}
	return "", false
}

func matchHardcoded(msg string, _ models.Awaiting) (models.Intent, bool) {
	for _, rule := range hardcodedRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.intent, true
			}
		}
	}
	return "", false
}

func (c *IntentClassifier) matchExact(msg string, _ models.Awaiting) (models.Intent, bool) {
	for _, ip := range c.intents {
		for _, phrase := range ip.Phrases {
			if msg == phrase {
				return models.Intent(ip.Intent), true
			}
		}
	}
	return "", false
}

func (c *IntentClassifier) matchSubstring(msg string, _ models.Awaiting) (models.Intent, bool) {
	if msg == "" {
		return "", false
	}
	for _, ip := range c.intents {
		for _, phrase := range ip.Phrases {
			if strings.Contains(msg, phrase) {
				return models.Intent(ip.Intent), true
			}
		}
	}
	return "", false
}

func (c *IntentClassifier) matchFuzzy(msg string, _ models.Awaiting) (models.Intent, bool) {
	if msg == "" {
		return "", false
	}
	for _, ip := range c.intents {
		if len(CloseMatches(msg, ip.Phrases, 1, c.cutoff)) > 0 {
			return models.Intent(ip.Intent), true
		}
	}
	return "", false
}
