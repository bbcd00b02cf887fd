// Package rulesindex implements the rules index: chunking the
// Comprehensive Rules document along its hierarchical numbering,
// indexing each chunk in both a vector store and a keyword (BM25) index,
// and serving vector/BM25/hybrid retrieval with a bounded query cache.
package rulesindex

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// ruleIDPattern matches a leading rule id like "100.", "100.1", or "100.1a"
// at the start of a Comprehensive Rules paragraph.
var ruleIDPattern = regexp.MustCompile(`^(\d{3}(?:\.\d+[a-z]?)?)\.?\s+(.*)$`)

// Chunk is one indexed unit of the Comprehensive Rules: a single numbered
// paragraph and its text.
type Chunk struct {
	RuleID string
	Text   string
}

// ChunkRules splits the Comprehensive Rules source document into Chunks,
// one per numbered paragraph. Lines that don't start with a rule number are
// treated as continuations of the previous paragraph, since Comprehensive
// Rules paragraphs sometimes wrap onto following lines in plain-text
// exports.
func ChunkRules(source string) ([]Chunk, error) {
	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var chunks []Chunk
	var current *Chunk

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m := ruleIDPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				chunks = append(chunks, *current)
			}
			current = &Chunk{RuleID: m[1], Text: m[2]}
			continue
		}
		if current != nil {
			current.Text = current.Text + " " + line
		}
	}
	if current != nil {
		chunks = append(chunks, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewError(domain.KindInvalidQuery, "chunk_rules", "failed scanning source", err)
	}
	return chunks, nil
}
