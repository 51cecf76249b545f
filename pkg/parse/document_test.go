package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ImagesInDocumentOrder(t *testing.T) {
	html := `<html><head><title> Home </title></head><body>
		<img src="/a.png" alt="First">
		<img class="  brand   Site-Logo " id="hdr" src="b.png">
		<img alt="no source">
	</body></html>`

	doc, err := Parse([]byte(html))
	require.NoError(t, err)

	images := doc.Images()
	require.Len(t, images, 3)

	assert.Equal(t, "First", images[0].Alt)
	assert.Equal(t, "/a.png", images[0].Src)
	assert.True(t, images[0].HasSrc)

	assert.Equal(t, []string{"brand", "Site-Logo"}, images[1].Classes)
	assert.Equal(t, "hdr", images[1].ID)

	assert.False(t, images[2].HasSrc)
	assert.Empty(t, images[2].Src)

	assert.Equal(t, "Home", doc.Title())
}

func TestParse_EmptySrcIsStillPresent(t *testing.T) {
	doc, err := Parse([]byte(`<img src="" alt="logo">`))
	require.NoError(t, err)

	images := doc.Images()
	require.Len(t, images, 1)
	assert.True(t, images[0].HasSrc)
	assert.Equal(t, "", images[0].Src)
}

func TestParse_Links(t *testing.T) {
	html := `<a href="/about">About</a><a>no href</a><a href="  ">blank</a>
		<a href="https://other.test/x">Other</a><a href="#top">Top</a>`

	doc, err := Parse([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, []string{"/about", "https://other.test/x", "#top"}, doc.Links())
}

func TestParse_MalformedMarkupNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"<<<>>>",
		"<html><body><img src='/l.png' alt='logo'",
		"<div><p><a href='/x'>unclosed",
		"\x00\x01binary",
	}
	for _, in := range inputs {
		doc, err := Parse([]byte(in))
		require.NoError(t, err, "input %q", in)
		require.NotNil(t, doc)
		_ = doc.Images()
		_ = doc.Links()
	}
}

func TestParse_UnclosedImageStillFound(t *testing.T) {
	doc, err := Parse([]byte(`<body><img src="/l.png" alt="Logo"><p>text`))
	require.NoError(t, err)
	require.Len(t, doc.Images(), 1)
}

func TestDocument_NilSafe(t *testing.T) {
	var doc *Document
	assert.Nil(t, doc.Images())
	assert.Nil(t, doc.Links())
	assert.Empty(t, doc.Title())
}
