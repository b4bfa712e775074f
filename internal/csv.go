package internal

import (
	"encoding/csv"
	"io"
	"iter"

	"github.com/cockroachdb/errors"
)

type Result[T any] struct {
	LineNum int
	Value   T
	Error   error
}

// ParseCSV yields one converted record per CSV line. When hasHeader is set the
// first line is passed to fromCSV as headers rather than converted.
func ParseCSV[T any](reader io.Reader, hasHeader bool, fromCSV func(record, headers []string) (T, error)) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		r := csv.NewReader(reader)
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true

		var headers []string
		lineNum := 0
		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			lineNum++
			if err != nil {
				yield(Result[T]{LineNum: lineNum, Error: errors.Wrapf(err, "line %d", lineNum)})
				return
			}
			if hasHeader && headers == nil {
				headers = record
				continue
			}

			value, err := fromCSV(record, headers)
			if err != nil {
				err = errors.Wrapf(err, "line %d", lineNum)
			}
			if !yield(Result[T]{LineNum: lineNum, Value: value, Error: err}) {
				return
			}
		}
	}
}
