package export

// Column describes one field of a tabular export.
type Column struct {
	Key   string
	Title string
	// Width is a relative weight used by the PDF renderer; zero means 1.
	Width float64
}

// Section is a titled table inside a report.
type Section struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Report is the unit rendered by the CSV and PDF exporters.
type Report struct {
	Title    string
	Subtitle string
	Sections []Section
}
