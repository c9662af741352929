package report

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the report Writer based on flags.
func Configured() *Writer {
	dir := lflag.String("output-dir", ".", "Directory the report workbook is written to")
	name := lflag.String("report-name", DefaultName, "File name of the report workbook")

	w := &Writer{}

	lflag.Do(func() {
		w.dir = *dir
		w.name = *name
		if err := w.Validate(); err != nil {
			panic(fmt.Sprintf("report validation failed: %v", err))
		}
	})

	return w
}
