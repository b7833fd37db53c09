package ingest

import (
	"fmt"
)

// DefaultChunkSize is the number of characters per chunk.
const DefaultChunkSize = 1000

/*
Chunk is a contiguous slice of a document. ID is "{source}_{index}" and is
the key under which the chunk lives in the vector store.
*/
type Chunk struct {
	ID     string
	Text   string
	Source string
	Index  int
}

/*
Split cuts text into contiguous, non-overlapping pieces of size characters.
The last piece may be shorter and empty text yields no pieces. Sizes are
counted in runes so multi-byte characters are never split.
*/
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)

	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}

	return out
}

// Chunks splits text and labels each piece with its source and index.
func Chunks(source, text string, size int) []Chunk {
	pieces := Split(text, size)
	out := make([]Chunk, len(pieces))

	for i, piece := range pieces {
		out[i] = Chunk{
			ID:     fmt.Sprintf("%s_%d", source, i),
			Text:   piece,
			Source: source,
			Index:  i,
		}
	}

	return out
}
