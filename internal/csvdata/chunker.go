// Package csvdata splits uploaded power-quality CSV files into chunks small
// enough to fit a single analysis prompt.
package csvdata

import (
	"fmt"
	"strings"
)

// DefaultChunkSize is the maximum number of data rows per chunk.
const DefaultChunkSize = 100

// Chunk splits csv into chunks of at most chunkSize data rows. The header
// row is repeated at the top of every chunk so each one is a self-contained
// CSV document. A UTF-8 BOM is stripped and CRLF line endings are tolerated.
func Chunk(csv string, chunkSize int) ([]string, error) {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	csv = strings.TrimPrefix(csv, "\ufeff")
	csv = strings.ReplaceAll(csv, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(csv, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("csv input is empty")
	}
	header := lines[0]
	rows := lines[1:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv input has a header but no data rows")
	}

	var chunks []string
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		var b strings.Builder
		b.WriteString(header)
		for _, row := range rows[start:end] {
			b.WriteByte('\n')
			b.WriteString(row)
		}
		chunks = append(chunks, b.String())
	}
	return chunks, nil
}
