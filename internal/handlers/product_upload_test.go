package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartContext(t *testing.T, fill func(w *multipart.Writer)) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fill(writer)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("PUT", "/admin/api/products/1", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestParseMultipartProductRequest_PicksLastSaleEnabledValue(t *testing.T) {
	c := multipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("saleEnabled", "false")
		_ = w.WriteField("saleEnabled", "true")
		_ = w.WriteField("salePrice", "99")
	})

	parsed, err := parseMultipartProductRequest(c, Uploads{Root: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, parsed.SaleEnabledSet)
	assert.True(t, parsed.SaleEnabled)
	assert.True(t, parsed.SalePriceSet)
	assert.Equal(t, 99.0, parsed.SalePrice)
	assert.False(t, parsed.ImageSet)
}

func TestParseMultipartProductRequest_RejectsBadNumbers(t *testing.T) {
	c := multipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("price", "cheap")
	})
	_, err := parseMultipartProductRequest(c, Uploads{Root: t.TempDir()})
	assert.EqualError(t, err, "price must be a number")
}

func TestParseMultipartProductRequest_ResizesLargeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2400, 600))
	for x := 0; x < 2400; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	root := t.TempDir()
	c := multipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("name", "Shito")
		part, err := w.CreateFormFile("image", "shito.png")
		require.NoError(t, err)
		_, _ = part.Write(encoded.Bytes())
	})

	parsed, err := parseMultipartProductRequest(c, Uploads{Root: root})
	require.NoError(t, err)
	require.True(t, parsed.ImageSet)

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(parsed.ImagePath)))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, maxImageEdge, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestUploadsDeleteRefusesOutsidePaths(t *testing.T) {
	u := Uploads{Root: t.TempDir()}
	assert.Error(t, u.Delete("../etc/passwd"))
	assert.Error(t, u.Delete("config/.env"))
	assert.NoError(t, u.Delete(""))
	assert.NoError(t, u.Delete("uploads/products/missing.png"))
}
