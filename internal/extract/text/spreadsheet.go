package text

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SpreadsheetStrategy reads the first non-empty sheet of an xlsx workbook.
type SpreadsheetStrategy struct {
	logger *zap.Logger
}

func (s *SpreadsheetStrategy) Extract(ctx context.Context, data []byte) (Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			s.logger.Warn("Failed to read sheet", zap.String("sheet", sheet), zap.Error(err))
			continue
		}
		preamble, table := splitHeader(rows)
		if len(table) == 0 {
			continue
		}
		return Document{
			Text:     renderTable(preamble, table),
			Table:    table,
			Preamble: preamble,
			Pages:    len(sheets),
			Method:   "excelize",
		}, nil
	}

	return Document{Pages: len(sheets), Method: "excelize"}, nil
}

// XLSStrategy reads legacy BIFF workbooks.
type XLSStrategy struct{}

func (s *XLSStrategy) Extract(ctx context.Context, data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xls reader panic: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Document{}, fmt.Errorf("failed to open workbook: %w", err)
	}

	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, normalizeXLSCell(row.Col(c)))
			}
			rows = append(rows, cells)
		}
		preamble, table := splitHeader(rows)
		if len(table) == 0 {
			continue
		}
		return Document{
			Text:     renderTable(preamble, table),
			Table:    table,
			Preamble: preamble,
			Pages:    wb.NumSheets(),
			Method:   "extrame/xls",
		}, nil
	}

	return Document{Pages: wb.NumSheets(), Method: "extrame/xls"}, nil
}

// normalizeXLSCell trims float noise such as "1200.000000" that the BIFF
// reader produces for numeric cells.
func normalizeXLSCell(v string) string {
	if !strings.Contains(v, ".") {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}
