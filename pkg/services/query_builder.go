package services

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	config "silverbot-chat-api/configs"

	"gorm.io/gorm"
)

// ProductScope は商品クエリを絞り込む gorm のスコープ
type ProductScope func(db *gorm.DB) *gorm.DB

// maxBudget を超える金額は予算として扱わない
const maxBudget = math.MaxInt32

var (
	budgetPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(k\b)?`)
	integerPattern  = regexp.MustCompile(`\d+`)
	rupeeWordPrefix = regexp.MustCompile(`\b(rs\.?|inr)\s*`)
	likeEscaper     = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// QueryBuilder はカテゴリ表を使って自由文をカタログの絞り込み条件に変換します。
type QueryBuilder struct {
	synonyms []config.CategorySynonym // キーワードの長い順
	families []config.KeywordFamily
}

// NewQueryBuilder は不変のインテント設定から検索表を一度だけ構築します。
func NewQueryBuilder(cfg *config.IntentConfig) *QueryBuilder {
	synonyms := cfg.Categories()
	// "earrings" は "rings" より先に試す
	sort.SliceStable(synonyms, func(i, j int) bool {
		return len(synonyms[i].Keyword) > len(synonyms[j].Keyword)
	})
	return &QueryBuilder{
		synonyms: synonyms,
		families: cfg.KeywordFamilies(),
	}
}

// ResolveCategory は text に含まれる最初の同義語の正規カテゴリを返します。
func (b *QueryBuilder) ResolveCategory(text string) (string, bool) {
	msg := NormalizeText(text)
	for _, syn := range b.synonyms {
		if syn.Keyword != "" && strings.Contains(msg, syn.Keyword) {
			return syn.Canonical, true
		}
	}
	return "", false
}

// CategoryQuery はカテゴリ完全一致のスコープを返します。キーワードがなければ nil。
func (b *QueryBuilder) CategoryQuery(text string) ProductScope {
	canonical, ok := b.ResolveCategory(text)
	if !ok {
		return nil
	}
	return CategoryEquals(canonical)
}

// BroadCategoryQuery は text に含まれる各キーワードについて、名前・カテゴリ・正規カテゴリの
// 部分一致を OR で結合したスコープを返します。キーワードがなければ nil。
func (b *QueryBuilder) BroadCategoryQuery(text string) ProductScope {
	msg := NormalizeText(text)

	var conds []string
	var args []interface{}
	for _, family := range b.families {
		for _, kw := range family.Keywords {
			if !strings.Contains(msg, kw) {
				continue
			}
			conds = append(conds,
				`LOWER(name) LIKE ? ESCAPE '\'`,
				`LOWER(category) LIKE ? ESCAPE '\'`,
				`LOWER(category) LIKE ? ESCAPE '\'`,
			)
			args = append(args, containsPattern(kw), containsPattern(kw), containsPattern(family.Canonical))
		}
	}
	if len(conds) == 0 {
		return nil
	}

	where := "(" + strings.Join(conds, " OR ") + ")"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(where, args...)
	}
}

// CategoryEquals はカテゴリを大文字小文字を区別せずに比較する
func CategoryEquals(category string) ProductScope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(category) = ?", strings.ToLower(category))
	}
}

// NameContains は名前に s を含む商品に一致する（大文字小文字は区別しない）
func NameContains(s string) ProductScope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(s))
	}
}

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// PriceLimit は "2000"、"₹2,000"、"rs 1500"、"2.5k" のような予算を取り出します。
func PriceLimit(text string) (int, bool) {
	t := NormalizeText(text)
	t = strings.NewReplacer("₹", " ", "/-", " ", ",", "").Replace(t)
	t = rupeeWordPrefix.ReplaceAllString(t, " ")

	m := budgetPattern.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		num *= 1000
	}
	if num > maxBudget {
		return 0, false
	}
	return int(num), true
}

// FirstInteger は text の最初の整数（まとめ買いの数量）を返します。
func FirstInteger(text string) (int, bool) {
	tok := integerPattern.FindString(text)
	if tok == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}
