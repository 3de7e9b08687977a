package hooks

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	taskMax         = 500
	outcomeMax      = 1000
	archiveEntryMax = 500
	archiveMax      = 5000
	archiveEllipsis = "\n\n[...truncated]"
)

// Message is one transcript entry with its text flattened.
type Message struct {
	Role string
	Text string
}

type transcriptEntry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReadTranscript loads a JSONL transcript. Blank or malformed lines and
// entries without text are skipped.
func ReadTranscript(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return parseTranscript(f)
}

func parseTranscript(r io.Reader) ([]Message, error) {
	var msgs []Message
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if m, ok := parseEntry(bytes.TrimSpace(line)); ok {
			msgs = append(msgs, m)
		}
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return msgs, fmt.Errorf("read transcript: %w", err)
		}
	}
}

func parseEntry(line []byte) (Message, bool) {
	if len(line) == 0 {
		return Message{}, false
	}
	var e transcriptEntry
	if err := json.Unmarshal(line, &e); err != nil {
		return Message{}, false
	}

	role, raw := e.Role, e.Content
	if e.Message != nil {
		if role == "" {
			role = e.Message.Role
		}
		if len(raw) == 0 {
			raw = e.Message.Content
		}
	}

	text := contentText(raw)
	if text == "" {
		return Message{}, false
	}
	return Message{Role: role, Text: text}, true
}

// contentText accepts either a plain string or a list of content blocks, of
// which only "text" blocks count.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" {
			texts = append(texts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// SessionSummary pairs the first user request with the last assistant reply.
func SessionSummary(msgs []Message) string {
	var firstUser, lastAssistant string
	for _, m := range msgs {
		switch m.Role {
		case "user":
			if firstUser == "" {
				firstUser = m.Text
			}
		case "assistant":
			lastAssistant = m.Text
		}
	}

	var parts []string
	if firstUser != "" {
		parts = append(parts, "Task: "+truncate(firstUser, taskMax))
	}
	if lastAssistant != "" {
		parts = append(parts, "Outcome: "+truncate(lastAssistant, outcomeMax))
	}
	return strings.Join(parts, "\n\n")
}

// Archive renders the transcript for storage before compaction.
func Archive(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("[%s]: %s", m.Role, truncate(m.Text, archiveEntryMax)))
	}
	out := strings.Join(lines, "\n\n")
	if utf8.RuneCountInString(out) > archiveMax {
		out = truncate(out, archiveMax) + archiveEllipsis
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
