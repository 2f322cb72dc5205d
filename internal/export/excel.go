// Package export builds the orders spreadsheet handed to the transporter.
// Read-only consumer of committed order data.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/models"
)

var headers = []string{"#", "Name", "Phone", "Region", "City", "Status", "Products", "Total"}

type Exporter struct {
	db *gorm.DB
}

func NewExporter(db *gorm.DB) *Exporter { return &Exporter{db: db} }

// Orders writes an xlsx workbook for the selected orders, sorted by region
// then city so the transporter can batch deliveries.
func (e *Exporter) Orders(ctx context.Context, orderIDs []uint, w io.Writer) error {
	var orders []models.Order
	err := e.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("id IN ?", orderIDs).
		Order("region, city").
		Find(&orders).Error
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Orders"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	widths := []float64{10, 25, 15, 20, 20, 15, 40, 15}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
		return err
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	for i, order := range orders {
		row := i + 2
		var lines []string
		for _, it := range order.Items {
			lines = append(lines, fmt.Sprintf("%s × %d", it.Product.Name, it.Quantity))
		}
		values := []any{
			order.ID,
			order.CustomerName,
			order.Phone,
			order.Region,
			order.City,
			order.Status,
			strings.Join(lines, "\n"),
			order.Total().StringFixed(2),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		itemsCell, _ := excelize.CoordinatesToCellName(7, row)
		if err := f.SetCellStyle(sheet, itemsCell, itemsCell, wrapStyle); err != nil {
			return err
		}
	}

	return f.Write(w)
}
