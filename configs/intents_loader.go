package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultIntentCutoff  = 0.75
	defaultProductCutoff = 0.6
)

// IntentPhrases はインテント名とトリガーフレーズの組です。
type IntentPhrases struct {
	Intent  string
	Phrases []string
}

// CategorySynonym はキーワードと正規カテゴリ名の対応です。
type CategorySynonym struct {
	Keyword   string
	Canonical string
}

// KeywordFamily は広域検索で使うキーワード群です（ring/rings など）。
type KeywordFamily struct {
	Canonical string
	Keywords  []string
}

// IntentConfig はintents.yamlから構築される不変の設定オブジェクトです。
// 起動時に一度だけ読み込み、再読み込みはプロセス再起動で行います。
type IntentConfig struct {
	intents       []IntentPhrases
	categories    []CategorySynonym
	families      []KeywordFamily
	intentCutoff  float64
	productCutoff float64
}

// intentFile はYAMLファイルの生構造。マッピングの順序を保つためyaml.Nodeで受ける。
type intentFile struct {
	Settings struct {
		IntentCutoff  float64 `yaml:"intent_cutoff"`
		ProductCutoff float64 `yaml:"product_cutoff"`
	} `yaml:"settings"`
	Intents         yaml.Node `yaml:"intents"`
	Categories      yaml.Node `yaml:"categories"`
	KeywordFamilies yaml.Node `yaml:"keyword_families"`
}

// LoadIntentConfig はYAMLファイルからインテント設定を読み込む
func LoadIntentConfig(path string) (*IntentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("インテント設定ファイルの読み込みに失敗: %w", err)
	}
	return ParseIntentConfig(data)
}

// ParseIntentConfig はYAMLバイト列からインテント設定を構築する
func ParseIntentConfig(data []byte) (*IntentConfig, error) {
	var raw intentFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}

	cfg := &IntentConfig{
		intentCutoff:  raw.Settings.IntentCutoff,
		productCutoff: raw.Settings.ProductCutoff,
	}
	if cfg.intentCutoff <= 0 || cfg.intentCutoff > 1 {
		cfg.intentCutoff = defaultIntentCutoff
	}
	if cfg.productCutoff <= 0 || cfg.productCutoff > 1 {
		cfg.productCutoff = defaultProductCutoff
	}

	err := eachPair(&raw.Intents, "intents", func(key string, value *yaml.Node) error {
		var phrases []string
		if err := value.Decode(&phrases); err != nil {
			return fmt.Errorf("intents.%s: %w", key, err)
		}
		cfg.intents = append(cfg.intents, IntentPhrases{Intent: key, Phrases: normalizePhrases(phrases)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(cfg.intents) == 0 {
		return nil, fmt.Errorf("intentsが定義されていません")
	}

	err = eachPair(&raw.Categories, "categories", func(key string, value *yaml.Node) error {
		var canonical string
		if err := value.Decode(&canonical); err != nil {
			return fmt.Errorf("categories.%s: %w", key, err)
		}
		cfg.categories = append(cfg.categories, CategorySynonym{
			Keyword:   strings.ToLower(strings.TrimSpace(key)),
			Canonical: strings.TrimSpace(canonical),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachPair(&raw.KeywordFamilies, "keyword_families", func(key string, value *yaml.Node) error {
		var keywords []string
		if err := value.Decode(&keywords); err != nil {
			return fmt.Errorf("keyword_families.%s: %w", key, err)
		}
		cfg.families = append(cfg.families, KeywordFamily{
			Canonical: strings.ToLower(strings.TrimSpace(key)),
			Keywords:  normalizePhrases(keywords),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// eachPair はマッピングノードのキーと値をファイル上の順序で走査する。
// セクションが省略されている場合は何もしない。
func eachPair(node *yaml.Node, section string, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s はマッピングである必要があります (line %d)", section, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// normalizePhrases は小文字化する。末尾の空白は意味を持つ（"add " は "address" に一致させない）。
func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, strings.ToLower(strings.TrimLeft(p, " \t")))
	}
	return out
}

// Intents はインテント定義をファイル順で返す（コピー）
func (c *IntentConfig) Intents() []IntentPhrases {
	out := make([]IntentPhrases, len(c.intents))
	for i, ip := range c.intents {
		out[i] = IntentPhrases{Intent: ip.Intent, Phrases: append([]string(nil), ip.Phrases...)}
	}
	return out
}

// Categories はカテゴリ同義語をファイル順で返す（コピー）
func (c *IntentConfig) Categories() []CategorySynonym {
	return append([]CategorySynonym(nil), c.categories...)
}

// KeywordFamilies は広域検索用キーワード群を返す（コピー）
func (c *IntentConfig) KeywordFamilies() []KeywordFamily {
	out := make([]KeywordFamily, len(c.families))
	for i, f := range c.families {
		out[i] = KeywordFamily{Canonical: f.Canonical, Keywords: append([]string(nil), f.Keywords...)}
	}
	return out
}

// IntentCutoff はインテントのあいまい一致の閾値
func (c *IntentConfig) IntentCutoff() float64 { return c.intentCutoff }

// ProductCutoff は商品名のあいまい一致の閾値
func (c *IntentConfig) ProductCutoff() float64 { return c.productCutoff }
