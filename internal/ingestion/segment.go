package ingestion

import "strings"

// HeaderMarker keys the block that precedes the first section marker.
const HeaderMarker = "header"

// Block is a contiguous run of statement lines opened by a section marker.
type Block struct {
	Marker string
	Start  int // first line, inclusive
	End    int // last line, exclusive
	Lines  []string
}

// Blocks is the ordered output of Segment.
type Blocks []Block

// Find returns the first block opened by marker.
func (bs Blocks) Find(marker string) (Block, bool) {
	for _, b := range bs {
		if b.Marker == marker {
			return b, true
		}
	}
	return Block{}, false
}

// Segment splits lines into blocks in a single pass. A line containing one of
// markers closes the open block and opens a new one; the first block is
// always the header regardless of its content, and the last block runs to
// the end of input.
func Segment(lines []string, markers []string) Blocks {
	var blocks Blocks
	current, start := HeaderMarker, 0
	for i, line := range lines {
		for _, m := range markers {
			if m == "" || !strings.Contains(line, m) {
				continue
			}
			blocks = append(blocks, Block{Marker: current, Start: start, End: i, Lines: lines[start:i]})
			current, start = m, i
			break
		}
	}
	return append(blocks, Block{Marker: current, Start: start, End: len(lines), Lines: lines[start:]})
}

// splitLines normalizes line endings and strips a UTF-8 byte order mark.
func splitLines(data []byte) []string {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
