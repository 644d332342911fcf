package llm

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// streamSSE reads a text/event-stream body and calls onEvent once per event.
// A non-nil error from onEvent stops the read and is returned.
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		ev := eventName
		dataLines = nil
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line != "" {
					if strings.HasPrefix(line, "data:") {
						dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
					}
				}
				return flush()
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "": // blank line ends event
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"): // comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
