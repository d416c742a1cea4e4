package catalog

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxImageBytes is the largest accepted image. Images are stored inline in
// the movie document, which must stay under the store's document size limit.
const MaxImageBytes = 900 * 1024

// EncodeImage turns raw image bytes into a data URL suitable for Movie.Image.
func EncodeImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Field: "image", Reason: "empty file"}
	}
	if err := checkImageSize(len(data)); err != nil {
		return "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", &ValidationError{Field: "image", Reason: fmt.Sprintf("unsupported content type %s", mime)}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DataURLSize returns the decoded size in bytes of a base64 data URL.
func DataURLSize(dataURL string) (int, error) {
	_, payload, ok := strings.Cut(dataURL, ";base64,")
	if !ok {
		return 0, errors.New("not a base64 data URL")
	}
	n := base64.StdEncoding.DecodedLen(len(payload))
	n -= strings.Count(payload[max(0, len(payload)-2):], "=")
	return n, nil
}

// FormatSize renders a byte count for display, e.g. "900 KiB".
func FormatSize(n int) string {
	return humanize.IBytes(uint64(n))
}

func checkImageSize(n int) error {
	if n > MaxImageBytes {
		return &ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("size %s exceeds the maximum of %s", FormatSize(n), FormatSize(MaxImageBytes)),
		}
	}
	return nil
}
