package extract

import "testing"

func TestExtractMetadataInline(t *testing.T) {
	md := "# Rondo Book\nCategory: Possession Difficulty: Easy\nAuthor: Jane Coach\nDesired Outcome: Keep the ball.\n## Drill A\n"
	got := ExtractMetadata(md, "rondo.pdf")
	if got.Title != "Rondo Book" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Category != "Possession" || got.Difficulty != "Easy" {
		t.Errorf("category/difficulty = %q/%q", got.Category, got.Difficulty)
	}
	if got.Author != "Jane Coach" {
		t.Errorf("author = %q", got.Author)
	}
	if got.DesiredOutcome != "Keep the ball." {
		t.Errorf("outcome = %q", got.DesiredOutcome)
	}
}

func TestExtractMetadataSeparateLines(t *testing.T) {
	md := "## Session\nTopic: Pressing\nLevel: Advanced\n"
	got := ExtractMetadata(md, "x.pdf")
	if got.Title != "Session" || got.Category != "Pressing" || got.Difficulty != "Advanced" {
		t.Errorf("unexpected metadata: %+v", got)
	}
}

func TestExtractMetadataFilenameFallback(t *testing.T) {
	got := ExtractMetadata("just some text", "/tmp/rondo_drills-v2.pdf")
	if got.Title != "Rondo Drills V2" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestExtractMetadataAuthorsSection(t *testing.T) {
	md := "## AUTHORS\n**Marco Rossi** is a UEFA Pro licence holder.\n## Drill A\n"
	if got := ExtractMetadata(md, "a.pdf").Author; got != "Marco Rossi" {
		t.Errorf("author = %q", got)
	}
}

func TestCapField(t *testing.T) {
	long := "First sentence. Second sentence that keeps going for a while"
	if got := capField(long, 20); got != "First sentence" {
		t.Errorf("capField = %q", got)
	}
	if got := capField("abcdefgh", 4); got != "abcd" {
		t.Errorf("capField = %q", got)
	}
}
