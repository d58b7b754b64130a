package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"
)

type Parser struct {
	gofeedParser *gofeed.Parser

	// now is injectable so date substitution is testable
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run parses a raw feed payload into normalized records for the named
// source. Entries without a title or link are dropped.
func (p *Parser) Run(data []byte, source string) ([]Record, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	records := make([]Record, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		record, ok := p.normalizeItem(item, source)
		if !ok {
			continue
		}
		record.Fingerprint = Fingerprint(record.Title, record.URL, record.Description)
		records = append(records, record)
	}

	return records, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, source string) (Record, bool) {
	title := cleanText(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return Record{}, false
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}

	record := Record{
		Title:       title,
		URL:         link,
		Description: cleanText(stripHTML(description)),
		Source:      source,
		PublishedAt: p.itemDate(item),
	}

	if len(item.Categories) > 0 {
		record.Category = cleanText(item.Categories[0])
	}

	return record, true
}

// itemDate prefers the published date, falls back to the updated date, and
// finally substitutes the ingestion time so every record carries a date.
func (p *Parser) itemDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return p.now()
}

// cleanText NFC-normalizes and collapses whitespace. Keeping both dedup and
// embedding inputs on the same normalized form means byte-level Unicode
// variance between fetches does not defeat the fingerprint.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// stripHTML removes markup from feed descriptions, which frequently arrive
// as HTML fragments. Entities are decoded for the common cases.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}

	out := b.String()
	for entity, repl := range map[string]string{
		"&amp;": "&", "&lt;": "<", "&gt;": ">",
		"&quot;": `"`, "&#39;": "'", "&nbsp;": " ",
	} {
		out = strings.ReplaceAll(out, entity, repl)
	}

	return out
}
