package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// chatResponse is one event of a recorded chat-completion stream.
type chatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ReadTranscript reads a recorded server-sent event stream of chat
// completions and returns the concatenated assistant content. It is the
// usual way to obtain a realistic payload for Start.
func ReadTranscript(ctx context.Context, r io.Reader) (string, error) {
	reader := bufio.NewReaderSize(r, 4096)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanLines)

	var content strings.Builder
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("failed to decode event on line %d: %w", lineNo, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			delta = chunk.Choices[0].Message.Content
		}
		content.WriteString(delta)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return content.String(), nil
}
