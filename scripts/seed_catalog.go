//go:build ignore

package main

import (
	"context"
	"log"
	"os"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/services"

	"github.com/joho/godotenv"
)

// sampleCatalog は引数なしで実行したときに登録するサンプル商品
var sampleCatalog = [][]string{
	{"name", "price", "category", "description", "image", "best_seller"},
	{"Silver Band Ring", "799", "Rings", "Plain 92.5 sterling band", "", "yes"},
	{"Oxidised Flower Ring", "1299", "Rings", "Adjustable oxidised ring", "", ""},
	{"Layered Necklace", "2499", "Necklaces", "Three layer silver necklace", "", "yes"},
	{"Temple Necklace", "", "Necklaces", "Price on request", "", ""},
	{"Classic Kada", "1899", "Bangles", "Solid silver kada", "", ""},
	{"Jhumka Earrings", "999", "Earrings", "Traditional jhumka", "", "yes"},
	{"Stud Earrings", "499", "Earrings", "Everyday studs", "", ""},
	{"Ghungroo Anklet", "1499", "Anklets", "Payal with ghungroo", "", ""},
	{"Rope Chain", "1799", "Chains", "20 inch rope chain", "", ""},
}

func main() {
	log.Println("🚀 商品カタログの初期化を開始します...")

	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.LoadConfig()
	db, err := services.OpenDatabase(cfg.DatabasePath, false)
	if err != nil {
		log.Fatalf("データベースの初期化に失敗: %v", err)
	}

	importer := services.NewCatalogImporter(services.NewCatalogStore(db))
	ctx := context.Background()

	// 引数でファイルが指定されていればそれを取り込む
	if len(os.Args) > 1 {
		path := os.Args[1]
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("ファイルを開けません %s: %v", path, err)
		}
		defer f.Close()

		result, err := importer.Import(ctx, path, f)
		if err != nil {
			log.Fatalf("取り込みに失敗: %v", err)
		}
		report(cfg.DatabasePath, result.Imported, result.Skipped, result.Errors)
		return
	}

	result, err := importer.ImportRows(ctx, sampleCatalog)
	if err != nil {
		log.Fatalf("サンプル商品の登録に失敗: %v", err)
	}
	report(cfg.DatabasePath, result.Imported, result.Skipped, result.Errors)
}

func report(dbPath string, imported, skipped int, errs []string) {
	for _, e := range errs {
		log.Printf("⚠️ %s", e)
	}
	log.Printf("✅ 完了: %d件登録/更新, %d件スキップ (DB: %s)", imported, skipped, dbPath)
}
