package netx

import (
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartForm_FieldsAndFile(t *testing.T) {
	body, ct, err := MultipartForm(
		map[string]string{"title": "Manual", "description": "first draft", "comments": ""},
		FormFile{Field: "file", Name: `a"b.txt`, ContentType: "text/plain", Data: []byte("line1\nline2")},
	)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	r := multipart.NewReader(body, params["boundary"])

	var names []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, p.FormName())

		data, err := io.ReadAll(p)
		require.NoError(t, err)

		switch p.FormName() {
		case "title":
			assert.Equal(t, "Manual", string(data))
		case "file":
			assert.Equal(t, `a"b.txt`, p.FileName())
			assert.Equal(t, "text/plain", p.Header.Get("Content-Type"))
			assert.Equal(t, "line1\nline2", string(data))
		}
	}

	assert.Equal(t, []string{"comments", "description", "title", "file"}, names)
}

func TestMultipartForm_DefaultContentType(t *testing.T) {
	body, ct, err := MultipartForm(nil, FormFile{Field: "file", Name: "blob.bin", Data: []byte{0, 1}})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)

	p, err := multipart.NewReader(body, params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", p.Header.Get("Content-Type"))
}
