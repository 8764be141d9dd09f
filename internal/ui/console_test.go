package ui

import (
	"strings"
	"testing"
)

func TestConsole_PromptReadsLine(t *testing.T) {
	var out strings.Builder
	c := NewConsole(strings.NewReader("  xin chào  \n"), &out)

	got, ok := c.Prompt("an")
	if !ok {
		t.Fatal("Prompt returned EOF")
	}
	if got != "xin chào" {
		t.Errorf("Prompt = %q, want trimmed input", got)
	}
	if !strings.Contains(out.String(), "an") {
		t.Error("prompt label not printed")
	}
}

func TestConsole_PromptEOF(t *testing.T) {
	var out strings.Builder
	c := NewConsole(strings.NewReader(""), &out)

	if _, ok := c.Prompt("an"); ok {
		t.Fatal("Prompt on empty input should report EOF")
	}
}

func TestConsole_BannerContainsInfo(t *testing.T) {
	var out strings.Builder
	c := NewConsole(strings.NewReader(""), &out)
	c.Banner("1.0.0", "googleai/gemini-2.0-flash")

	if !strings.Contains(out.String(), "1.0.0") {
		t.Error("banner missing version")
	}
	if !strings.Contains(out.String(), "gemini-2.0-flash") {
		t.Error("banner missing model")
	}
}

func TestConsole_ReplyFallsBackToPlainText(t *testing.T) {
	var out strings.Builder
	c := NewConsole(strings.NewReader(""), &out)
	c.renderer = nil

	c.Reply("**bold** text")
	if !strings.Contains(out.String(), "**bold** text") {
		t.Error("plain text fallback not printed")
	}
}
