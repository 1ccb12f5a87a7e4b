package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readExcel returns the rows of the first sheet that has any.
func readExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}
