// internal/cursor/payload.go
package cursor

import (
	"encoding/json"
	"fmt"
	"strings"

	fberrors "github.com/valpere/FBScrapexter/internal/errors"
)

// JSONPrefix guards JSON responses against being evaluated as script.
const JSONPrefix = "for (;;);"

// Action is one entry of a JSON page response's action list.
type Action struct {
	Cmd    string `json:"cmd"`
	HTML   string `json:"html,omitempty"`
	Code   string `json:"code,omitempty"`
	Target string `json:"target,omitempty"`
}

// Payload is a page response split into the markup to parse for posts and the
// text to scan for the next page cursor.
type Payload struct {
	HTML    string
	Blob    string
	JSON    bool
	Actions []Action
}

// ParsePayload splits a raw page response. Plain HTML is its own cursor blob
// with comment markers removed. A JSON response contributes the html of its
// replace (or append) actions and the code of its script actions.
func ParsePayload(text string) (*Payload, error) {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, JSONPrefix) {
		return &Payload{
			HTML: stripCommentMarkers(text),
			Blob: text,
		}, nil
	}

	var envelope struct {
		Payload struct {
			Actions []Action `json:"actions"`
		} `json:"payload"`
	}
	body := strings.TrimPrefix(trimmed, JSONPrefix)
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fberrors.Wrap(fmt.Errorf("invalid JSON page response: %w", err), fberrors.KindMalformedDocument, "cursor.ParsePayload")
	}

	p := &Payload{JSON: true, Actions: envelope.Payload.Actions}
	var blobs []string
	for _, a := range envelope.Payload.Actions {
		switch a.Cmd {
		case "replace", "append":
			if p.HTML == "" || a.Cmd == "replace" {
				p.HTML = a.HTML
			} else {
				p.HTML += a.HTML
			}
		case "script":
			blobs = append(blobs, a.Code)
		}
	}
	p.Blob = strings.Join(blobs, "\n")
	return p, nil
}

// ScanText is everything a resolver should look at: the cursor blob first, then
// the markup, since either may carry the next page link.
func (p *Payload) ScanText() []string {
	if p.JSON {
		return []string{p.Blob, p.HTML}
	}
	return []string{p.Blob}
}

func stripCommentMarkers(s string) string {
	return strings.NewReplacer("<!--", "", "-->", "").Replace(s)
}
