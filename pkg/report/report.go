package report

import (
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// WriteFile creates fileName and fills it with write.
func WriteFile(fileName string, write func(io.Writer) error) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// MarshalCsv writes in, a slice of csv-tagged structs, to w header first.
func MarshalCsv(in interface{}, w io.Writer) error {
	return gocsv.Marshal(in, w)
}
