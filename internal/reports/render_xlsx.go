package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const xlsxTimestampLayout = "2006-01-02T15:04:05Z"

// XLSXRenderer writes one styled worksheet per document.
type XLSXRenderer struct{}

func (XLSXRenderer) Render(w io.Writer, doc Document) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	sheet := doc.Sheet
	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	stamp := doc.GeneratedAt.UTC().Format(xlsxTimestampLayout)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:          doc.Title,
		Creator:        "storedesk",
		LastModifiedBy: "storedesk",
		Created:        stamp,
		Modified:       stamp,
	}); err != nil {
		return err
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return err
	}

	lastCol := len(doc.Columns)
	if lastCol == 0 {
		return fmt.Errorf("document has no columns")
	}

	row := 1
	if err := mergedRow(f, sheet, row, lastCol, doc.Title, styles.title); err != nil {
		return err
	}
	row++
	if err := mergedRow(f, sheet, row, lastCol, "Period: "+doc.Period, styles.period); err != nil {
		return err
	}
	row += 2

	for i, card := range doc.Cards {
		if err := setCell(f, sheet, 1+i*2, row, card.Label, styles.cardLabel); err != nil {
			return err
		}
		if err := setCell(f, sheet, 1+i*2, row+1, card.Value, styles.cardValue); err != nil {
			return err
		}
	}
	row += 3

	for c, col := range doc.Columns {
		if err := setCell(f, sheet, c+1, row, col.Header, styles.header); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, col.Width/2.2); err != nil {
			return err
		}
	}
	row++

	if doc.Empty {
		if err := mergedRow(f, sheet, row, lastCol, NoDataMessage, styles.body); err != nil {
			return err
		}
		row++
	} else {
		for _, cells := range doc.Rows {
			for c, cell := range cells {
				style := styles.body
				if doc.Columns[c].Money {
					style = styles.money
				}
				if err := setCell(f, sheet, c+1, row, cell.Value, style); err != nil {
					return err
				}
			}
			row++
		}
	}

	for c, cell := range doc.Totals {
		style := styles.total
		if doc.Columns[c].Money {
			style = styles.totalMoney
		}
		if err := setCell(f, sheet, c+1, row, cell.Value, style); err != nil {
			return err
		}
	}

	return f.Write(w)
}

type sheetStyles struct {
	title, period, cardLabel, cardValue, header, body, money, total, totalMoney int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "CBD5E0", Style: 1},
		{Type: "right", Color: "CBD5E0", Style: 1},
		{Type: "top", Color: "CBD5E0", Style: 1},
		{Type: "bottom", Color: "CBD5E0", Style: 1},
	}
	moneyFmt := "$#,##0.00"

	type styleDef struct {
		target *int
		style  *excelize.Style
	}
	var s sheetStyles
	var defs []styleDef
	add := func(target *int, style *excelize.Style) {
		defs = append(defs, styleDef{target: target, style: style})
	}
	add(&s.title, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "1A365D"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6FFFA"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	add(&s.period, &excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "4A5568"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	add(&s.cardLabel, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "1A365D"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"EBF8FF"}},
	})
	add(&s.cardValue, &excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "2B6CB0"},
	})
	add(&s.header, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2D3748"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	add(&s.body, &excelize.Style{Border: border})
	add(&s.money, &excelize.Style{Border: border, CustomNumFmt: &moneyFmt})
	add(&s.total, &excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"38A169"}},
		Border: border,
	})
	add(&s.totalMoney, &excelize.Style{
		Font:         &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"38A169"}},
		Border:       border,
		CustomNumFmt: &moneyFmt,
	})

	for _, def := range defs {
		id, err := f.NewStyle(def.style)
		if err != nil {
			return sheetStyles{}, err
		}
		*def.target = id
	}
	return s, nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

func mergedRow(f *excelize.File, sheet string, row, lastCol int, value string, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(lastCol, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, first, value); err != nil {
		return err
	}
	if lastCol > 1 {
		if err := f.MergeCell(sheet, first, last); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, first, last, style)
}
