package services

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// Match は CloseMatches が採用した候補と類似度です。
type Match struct {
	Value string
	Score float64
}

// CloseMatches は word との類似度が cutoff 以上の候補を、類似度の高い順に最大 n 件返します。
// 類似度は文字単位の difflib SequenceMatcher の ratio で、
// get_close_matches と同じ結果になります。
func CloseMatches(word string, candidates []string, n int, cutoff float64) []Match {
	if n <= 0 || cutoff < 0 || cutoff > 1 {
		return nil
	}

	wordSeq := splitChars(word)
	matcher := difflib.NewMatcher(nil, wordSeq)

	var result []Match
	for _, candidate := range candidates {
		matcher.SetSeq1(splitChars(candidate))
		if matcher.RealQuickRatio() >= cutoff &&
			matcher.QuickRatio() >= cutoff {
			if score := matcher.Ratio(); score >= cutoff {
				result = append(result, Match{Value: candidate, Score: score})
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Value > result[j].Value
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// BestMatch は cutoff 以上で最も近い候補を1件返します。
func BestMatch(word string, candidates []string, cutoff float64) (string, bool) {
	matches := CloseMatches(word, candidates, 1, cutoff)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Value, true
}

// Similarity は a と b の文字単位の類似度を返します。
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
