package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// 컬럼 순서: 공급사, 전표 제목, SKU, 수량
const (
	colSupplier = iota
	colTitle
	colSKU
	colQuantity
	columnCount
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	database := db.GetDB()
	purchaseService := service.NewPurchaseService(
		repository.NewPurchaseRepository(database),
		repository.NewCatalogRepository(database),
		repository.NewInventoryRepository(database),
		database,
	)

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	invoices, skipped, err := readInvoicesFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Invoices to import: %d (skipped rows: %d)\n", len(invoices), skipped)

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	ctx := context.Background()
	lots := 0
	for _, input := range invoices {
		invoice, err := purchaseService.CreateInvoice(ctx, input)
		if err != nil {
			log.Fatalf("Failed to create invoice %q: %v", input.Title, err)
		}
		result, err := purchaseService.ReceiveInvoice(ctx, invoice.ID)
		if err != nil {
			log.Fatalf("Failed to receive invoice %d: %v", invoice.ID, err)
		}
		lots += result.LotsCreated
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Invoices imported: %d, lots created: %d\n", len(invoices), lots)
}

func readInvoicesFromXLSX(filePath string) ([]service.CreateInvoiceInput, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트 이름 가져오기
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	invoices, skipped := groupInvoiceRows(rows[1:])
	return invoices, skipped, nil
}

// groupInvoiceRows 공급사+제목 기준으로 전표를 묶고, 같은 SKU는 수량을 합산
func groupInvoiceRows(rows [][]string) ([]service.CreateInvoiceInput, int) {
	var invoices []service.CreateInvoiceInput
	index := make(map[string]int)     // 공급사|제목 → invoices 인덱스
	lineIndex := make(map[string]int) // 공급사|제목|SKU → 라인 인덱스
	skipped := 0

	for _, row := range rows {
		if len(row) < columnCount {
			skipped++
			continue
		}

		supplier := strings.TrimSpace(row[colSupplier])
		title := strings.TrimSpace(row[colTitle])
		sku := strings.TrimSpace(row[colSKU])
		quantity, err := strconv.Atoi(strings.TrimSpace(row[colQuantity]))
		if title == "" || sku == "" || err != nil || quantity <= 0 {
			skipped++
			continue
		}

		key := supplier + "|" + title
		i, ok := index[key]
		if !ok {
			i = len(invoices)
			index[key] = i
			invoices = append(invoices, service.CreateInvoiceInput{
				Title:        title,
				SupplierName: supplier,
			})
		}

		lineKey := key + "|" + sku
		if j, ok := lineIndex[lineKey]; ok {
			invoices[i].Items[j].Quantity += quantity
			continue
		}
		lineIndex[lineKey] = len(invoices[i].Items)
		invoices[i].Items = append(invoices[i].Items, service.PurchaseLineInput{
			SKU:      sku,
			Quantity: quantity,
		})
	}

	return invoices, skipped
}
