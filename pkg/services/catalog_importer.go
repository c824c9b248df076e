package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"silverbot-chat-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat は .xlsx / .csv 以外のファイルで返されます。
var ErrUnsupportedFormat = errors.New("unsupported file format: upload .xlsx or .csv")

// ErrImportFormat はヘッダーやデータ行が読み取れないときに返されます。
var ErrImportFormat = errors.New("invalid import file")

// CatalogImporter は表計算ファイルから商品を一括登録します。
// 同名の商品が既に存在する場合は更新します。
type CatalogImporter struct {
	store *CatalogStore
}

// NewCatalogImporter は新しいCatalogImporterを生成します。
func NewCatalogImporter(store *CatalogStore) *CatalogImporter {
	return &CatalogImporter{store: store}
}

// ReadRows は最初のシート（.xlsx）またはファイル全体（.csv）の全行を読み込みます。
func ReadRows(filename string, r io.Reader) ([][]string, error) {
	switch name := strings.ToLower(filename); {
	case strings.HasSuffix(name, ".xlsx"):
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open xlsx: %v", ErrImportFormat, err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet rows: %w", err)
		}
		return rows, nil
	case strings.HasSuffix(name, ".csv"):
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse csv: %v", ErrImportFormat, err)
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// columns は検出した列インデックス（-1 は列なし）
type columns struct {
	name, price, category, description, image, bestSeller int
}

func detectColumns(header []string) (columns, error) {
	cols := columns{
		name:        findColumn(header, "name", "product", "product_name", "商品名"),
		price:       findColumn(header, "price", "mrp", "価格"),
		category:    findColumn(header, "category", "カテゴリ"),
		description: findColumn(header, "description", "details", "説明"),
		image:       findColumn(header, "image", "image_url", "img", "画像"),
		bestSeller:  findColumn(header, "best_seller", "bestseller", "best seller"),
	}
	if cols.name == -1 {
		return cols, fmt.Errorf("%w: name column not found in header %v", ErrImportFormat, header)
	}
	return cols, nil
}

func findColumn(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

// Import はファイルを読み込み、各行を登録または更新します。
func (im *CatalogImporter) Import(ctx context.Context, filename string, r io.Reader) (*models.ImportResult, error) {
	rows, err := ReadRows(filename, r)
	if err != nil {
		return nil, err
	}
	return im.ImportRows(ctx, rows)
}

// ImportRows は rows[0] をヘッダーとして商品を登録または更新します。
// 不正な行はスキップして結果に記録し、取り込みは中断しない。
func (im *CatalogImporter) ImportRows(ctx context.Context, rows [][]string) (*models.ImportResult, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file needs a header row and at least one data row", ErrImportFormat)
	}
	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}
	for i, row := range rows[1:] {
		line := i + 2
		product, err := productFromRow(row, cols)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if err := im.upsert(ctx, product); err != nil {
			if errors.Is(err, ErrInvalidProduct) {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
				continue
			}
			return result, err
		}
		result.Imported++
	}

	log.Printf("📦 [import] imported=%d skipped=%d", result.Imported, result.Skipped)
	return result, nil
}

func (im *CatalogImporter) upsert(ctx context.Context, product *models.Product) error {
	existing, err := im.store.FindByName(ctx, product.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		return im.store.Create(ctx, product)
	case err != nil:
		return err
	}
	product.ID = existing.ID
	return im.store.Update(ctx, product)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func productFromRow(row []string, cols columns) (*models.Product, error) {
	name := cell(row, cols.name)
	if name == "" {
		return nil, fmt.Errorf("empty name")
	}

	p := &models.Product{
		Name:        name,
		Category:    cell(row, cols.category),
		Description: optional(cell(row, cols.description)),
		Image:       optional(cell(row, cols.image)),
	}

	if raw := cell(row, cols.price); raw != "" {
		cleaned := strings.NewReplacer("₹", "", ",", "", "/-", "").Replace(raw)
		price, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q", raw)
		}
		p.Price = &price
	}

	switch strings.ToLower(cell(row, cols.bestSeller)) {
	case "1", "true", "yes", "y":
		p.BestSeller = true
	}
	return p, nil
}
