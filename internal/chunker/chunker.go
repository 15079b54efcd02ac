// Package chunker splits text into fixed-width pieces for embedding.
package chunker

import (
	"fmt"
	"unicode/utf8"
)

// Split partitions text into consecutive windows of size characters.
// The last window holds the remainder. Joining the result in order
// gives back text byte for byte; no trimming is done and words may be cut.
// Size counts Unicode code points; invalid UTF-8 bytes count as one each.
func Split(text string, size int) []string {
	if size <= 0 {
		panic(fmt.Sprintf("chunker: size must be positive, got %d", size))
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := 0; i < len(text); {
		_, width := utf8.DecodeRuneInString(text[i:])
		i += width
		count++
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}

	return chunks
}
