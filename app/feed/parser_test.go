package feed

import (
	"testing"
	"time"
)

var rssFixture = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>First Item</title>
      <link>https://example.com/item1</link>
      <description>&lt;p&gt;Some &lt;b&gt;bold&lt;/b&gt; text &amp;amp; more&lt;/p&gt;</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Undated Item</title>
      <link>https://example.com/item2</link>
      <description>No date on this one</description>
    </item>
    <item>
      <title></title>
      <link>https://example.com/item3</link>
      <description>Item without a title is dropped</description>
    </item>
  </channel>
</rss>`

func newTestParser(now time.Time) *Parser {
	p := NewParser()
	p.now = func() time.Time { return now }
	return p
}

func TestParseRSS2(t *testing.T) {
	now := time.Date(2023, 7, 4, 12, 0, 0, 0, time.UTC)
	records, err := newTestParser(now).Run([]byte(rssFixture), "Test Source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records (titleless entry dropped), got %d", len(records))
	}

	first := records[0]
	if first.Title != "First Item" {
		t.Errorf("expected title 'First Item', got %q", first.Title)
	}
	if first.URL != "https://example.com/item1" {
		t.Errorf("unexpected url %q", first.URL)
	}
	if first.Source != "Test Source" {
		t.Errorf("unexpected source %q", first.Source)
	}
	if first.Category != "Technology" {
		t.Errorf("expected first category, got %q", first.Category)
	}
	if first.Description != "Some bold text & more" {
		t.Errorf("HTML not stripped from description: %q", first.Description)
	}
	want := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("expected published %v, got %v", want, first.PublishedAt)
	}
	if first.Fingerprint != Fingerprint(first.Title, first.URL, first.Description) {
		t.Error("fingerprint not derived from normalized fields")
	}
}

func TestParseSubstitutesIngestionTime(t *testing.T) {
	now := time.Date(2023, 7, 4, 12, 0, 0, 0, time.UTC)
	records, err := newTestParser(now).Run([]byte(rssFixture), "Test Source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	undated := records[1]
	if undated.Title != "Undated Item" {
		t.Fatalf("unexpected record order: %q", undated.Title)
	}
	if !undated.PublishedAt.Equal(now) {
		t.Errorf("expected ingestion time %v for undated entry, got %v", now, undated.PublishedAt)
	}
}

func TestParseInvalidPayload(t *testing.T) {
	if _, err := NewParser().Run([]byte("not a feed"), "X"); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestCleanTextNormalizes(t *testing.T) {
	// NFD "é" (e + combining acute) must normalize to the NFC form so
	// repeated fetches fingerprint identically.
	nfd := "Café"
	nfc := "Café"
	if cleanText(nfd) != nfc {
		t.Errorf("expected NFC normalization, got %q", cleanText(nfd))
	}

	if got := cleanText("  a \n\t b  "); got != "a b" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}
