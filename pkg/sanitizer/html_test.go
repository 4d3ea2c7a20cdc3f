package sanitizer_test

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/pkg/sanitizer"
)

type comment struct {
	Title string `sanitize:"strip,trim"`
	Body  string `sanitize:"html"`
}

func TestHTMLRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   comment
		want comment
	}{
		{
			name: "formatting survives in html fields",
			in:   comment{Title: " <b>Hi</b> ", Body: `<p><strong>Bold</strong> and <em>it</em></p>`},
			want: comment{Title: "Hi", Body: `<p><strong>Bold</strong> and <em>it</em></p>`},
		},
		{
			name: "scripts are dropped",
			in:   comment{Title: `<script>alert(1)</script>News`, Body: `<p>Hello</p><script>alert('xss')</script>`},
			want: comment{Title: "News", Body: "<p>Hello</p>"},
		},
		{
			name: "links get nofollow",
			in:   comment{Body: `<a href="https://example.com">link</a>`},
			want: comment{Body: `<a href="https://example.com" rel="nofollow">link</a>`},
		},
		{
			name: "javascript urls and handlers are removed",
			in:   comment{Body: `<a href="javascript:alert(1)" onclick="x()">link</a>`},
			want: comment{Body: "link"},
		},
		{
			name: "layout tags are unwrapped",
			in:   comment{Body: `<div class="x"><p id="y">text</p></div>`},
			want: comment{Body: "<p>text</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.in
			require.NoError(t, sanitizer.SanitizeStruct(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripHTMLVectors(t *testing.T) {
	t.Parallel()

	vectors := []string{
		`<img src=x onerror=alert(1)>`,
		`<svg onload=alert(1)>`,
		`<iframe src="javascript:alert(1)"></iframe>`,
		`<body onload=alert(1)>`,
		`<a href="vbscript:msgbox(1)">x</a>`,
		`<style>body{background:url("javascript:alert(1)")}</style>`,
		`<meta http-equiv="refresh" content="0;url=javascript:alert(1)">`,
	}
	for _, v := range vectors {
		assert.NotContains(t, sanitizer.StripHTML(v), "<", v)
		assert.NotContains(t, sanitizer.SanitizeHTML(v), "javascript:", v)
		assert.NotContains(t, sanitizer.SanitizeHTML(v), "onerror=", v)
		assert.NotContains(t, sanitizer.SanitizeHTML(v), "onload=", v)
	}
}

func TestRegisterPolicy(t *testing.T) {
	t.Parallel()

	images := bluemonday.NewPolicy()
	images.AllowStandardURLs()
	images.AllowImages()
	sanitizer.RegisterPolicy("test_images", images)
	t.Cleanup(func() { sanitizer.RegisterPolicy("test_images", nil) })

	type post struct {
		Body  string `sanitize:"trim,test_images"`
		Other string `sanitize:"not_registered"`
	}

	p := &post{
		Body:  ` <img src="https://example.com/a.png"><script>x()</script> `,
		Other: "<b>kept</b>",
	}
	require.NoError(t, sanitizer.SanitizeStruct(p))
	assert.Contains(t, p.Body, `<img src="https://example.com/a.png"`)
	assert.NotContains(t, p.Body, "script")
	assert.Equal(t, "<b>kept</b>", p.Other)
}
