package assets

import (
	"strings"
	"testing"
)

func TestAPIReferenceMarkdown(t *testing.T) {
	md, err := APIReferenceMarkdown()
	if err != nil {
		t.Fatalf("APIReferenceMarkdown() error = %v", err)
	}
	for _, route := range []string{"/auth/token", "/ecg/create", "/ecg/get_insight/{id}"} {
		if !strings.Contains(string(md), route) {
			t.Errorf("api reference does not mention %s", route)
		}
	}
}

func TestRenderAPIReference(t *testing.T) {
	got, err := RenderAPIReference()
	if err != nil {
		t.Fatalf("RenderAPIReference() error = %v", err)
	}
	html := string(got)

	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(html, "<title>ECG Gateway API</title>") {
		t.Error("missing page title")
	}
	if !strings.Contains(html, "<h1>ECG Gateway API</h1>") {
		t.Error("markdown heading was not converted")
	}
	if !strings.Contains(html, "<h3>POST /ecg/create</h3>") {
		t.Error("missing route heading")
	}
	// Code blocks are escaped, not injected raw
	if !strings.Contains(html, "&quot;access_token&quot;") {
		t.Error("code block content should be HTML escaped")
	}
}

func TestRenderAPIReferenceCached(t *testing.T) {
	first, err := RenderAPIReference()
	if err != nil {
		t.Fatalf("RenderAPIReference() error = %v", err)
	}
	second, err := RenderAPIReference()
	if err != nil {
		t.Fatalf("RenderAPIReference() error = %v", err)
	}
	if &first[0] != &second[0] {
		t.Error("expected cached render to be reused")
	}
}
