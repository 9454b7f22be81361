package static

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystem(t *testing.T) {
	fsys := FileSystem()

	for _, name := range []string{"/css/style.css", "/js/common.js", "/js/generate.js", "/js/gallery.js"} {
		f, err := fsys.Open(name)
		require.NoError(t, err, name)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.NotEmpty(t, data, name)
		f.Close()
	}
}
