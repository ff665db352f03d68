package page

import (
	"reflect"
	"testing"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKeys []string
		wantVals map[string]string
		wantBody string
	}{
		{
			name:     "header followed by body",
			body:     "name: koen\nage: 29\n\n<p>Hello</p>\n<p>World</p>",
			wantKeys: []string{"name", "age"},
			wantVals: map[string]string{"name": "koen", "age": "29"},
			wantBody: "<p>Hello</p>\n<p>World</p>",
		},
		{
			name:     "no separator on first line",
			body:     "<html>\n<body>title: nope</body>",
			wantKeys: nil,
			wantBody: "<html>\n<body>title: nope</body>",
		},
		{
			name:     "empty input",
			body:     "",
			wantKeys: nil,
			wantBody: "",
		},
		{
			name:     "value keeps later separators",
			body:     "link: http://example.com:8080/x\nbody",
			wantKeys: []string{"link"},
			wantVals: map[string]string{"link": "http://example.com:8080/x"},
			wantBody: "body",
		},
		{
			name:     "keys and values are trimmed",
			body:     "  title  :   Hello World  \nrest",
			wantKeys: []string{"title"},
			wantVals: map[string]string{"title": "Hello World"},
			wantBody: "rest",
		},
		{
			name:     "leading blank lines are skipped",
			body:     "\n\ntitle: x\nbody",
			wantKeys: []string{"title"},
			wantVals: map[string]string{"title": "x"},
			wantBody: "body",
		},
		{
			name:     "whitespace only line ends the header",
			body:     "title: x\n   \nbody",
			wantKeys: []string{"title"},
			wantVals: map[string]string{"title": "x"},
			wantBody: "   \nbody",
		},
		{
			name:     "header only",
			body:     "title: x\ndraft: true\n",
			wantKeys: []string{"title", "draft"},
			wantVals: map[string]string{"title": "x", "draft": "true"},
			wantBody: "",
		},
		{
			name:     "crlf line endings",
			body:     "title: x\r\n\r\nbody\r\nmore",
			wantKeys: []string{"title"},
			wantVals: map[string]string{"title": "x"},
			wantBody: "body\nmore",
		},
		{
			name:     "repeated key keeps first position",
			body:     "a: 1\nb: 2\na: 3\nbody",
			wantKeys: []string{"a", "b"},
			wantVals: map[string]string{"a": "3", "b": "2"},
			wantBody: "body",
		},
		{
			name:     "empty value",
			body:     "draft:\nbody",
			wantKeys: []string{"draft"},
			wantVals: map[string]string{"draft": ""},
			wantBody: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body := ParseMetadata(tt.body, DefaultSeparator)

			if got := meta.Keys(); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("keys = %v, want %v", got, tt.wantKeys)
			}
			for k, want := range tt.wantVals {
				if got, ok := meta.Get(k); !ok || got != want {
					t.Errorf("meta[%q] = %q (%v), want %q", k, got, ok, want)
				}
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParseMetadataIsDeterministic(t *testing.T) {
	in := "title: x\nauthor: y\n\nbody"
	m1, b1 := ParseMetadata(in, DefaultSeparator)
	m2, b2 := ParseMetadata(in, DefaultSeparator)
	if !reflect.DeepEqual(m1, m2) || b1 != b2 {
		t.Error("ParseMetadata should return the same result for the same input")
	}
}

func TestParseMetadataCustomSeparator(t *testing.T) {
	meta, body := ParseMetadata("title = Hello: World\n<p>x</p>", "=")
	if got, _ := meta.Get("title"); got != "Hello: World" {
		t.Errorf("title = %q, want %q", got, "Hello: World")
	}
	if body != "<p>x</p>" {
		t.Errorf("body = %q", body)
	}
}

func TestParseContextSkipsNonHTML(t *testing.T) {
	site := newFakeSite(t)
	p := NewPage(site, "feed.xml", nopLogger())

	meta, body := p.ParseContext("title: x\nbody", DefaultSeparator)
	if meta.Len() != 0 {
		t.Errorf("non-HTML page should have no metadata, got %v", meta.Keys())
	}
	if body != "title: x\nbody" {
		t.Errorf("body = %q, want it unchanged", body)
	}
}

func TestMetadataMergeIntoOverrides(t *testing.T) {
	meta := NewMetadata()
	meta.Set("SiteName", "Override")
	ctx := Context{"SiteName": "Demo", "other": 1}
	meta.MergeInto(ctx)
	if ctx["SiteName"] != "Override" || ctx["other"] != 1 {
		t.Errorf("MergeInto() = %v", ctx)
	}
}
