package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        Category
	}{
		{"application/json", "application/json", JSON},
		{"vendor json", "application/vnd.api+json", JSON},
		{"json with charset", "application/json; charset=utf-8", JSON},
		{"uppercase", "Application/JSON", JSON},
		{"text/html", "text/html; charset=utf-8", HTML},
		{"xhtml", "application/xhtml+xml", HTML},
		{"text/xml", "text/xml", XML},
		{"form", "application/x-www-form-urlencoded", Form},
		{"text/plain", "text/plain", Text},
		{"javascript", "application/javascript", Text},
		{"yaml", "application/x-yaml", Text},
		{"png", "image/png", Binary},
		{"octet-stream", "application/octet-stream", Binary},
		{"empty", "", Binary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType))
		})
	}
}

func TestBaseMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"application/json; charset=utf-8", "application/json"},
		{"Text/HTML", "text/html"},
		{"garbage;;=", "garbage"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseMediaType(tt.in))
		})
	}
}

func TestSameFamily(t *testing.T) {
	tests := []struct {
		name     string
		live     string
		captured string
		want     bool
	}{
		{"identical", "application/json", "application/json", true},
		{"params ignored", "application/json; charset=utf-8", "application/json; charset=latin1", true},
		{"case insensitive", "Application/JSON", "application/json", true},
		{"different family", "text/html", "application/json", false},
		{"captured empty", "text/html", "", true},
		{"live empty", "", "application/json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameFamily(tt.live, tt.captured))
		})
	}
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary("application/json", nil))
	assert.False(t, IsBinary("text/plain", []byte{0xff}))
	assert.True(t, IsBinary("image/png", []byte("abc")))
	assert.True(t, IsBinary("", []byte{0xff, 0xfe}))
	assert.False(t, IsBinary("", []byte("plain")))
}

func TestIsJSONAndForm(t *testing.T) {
	assert.True(t, IsJSON("application/problem+json"))
	assert.False(t, IsJSON("text/plain"))
	assert.True(t, IsForm("application/x-www-form-urlencoded; charset=UTF-8"))
	assert.False(t, IsForm("multipart/form-data"))
}
