package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// VerifySHA256 computes the SHA256 hash of the file at path and compares it
// to the expected hex digest.
func VerifySHA256(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.WrapWithMessage(err, apperrors.Download, "opening file for checksum")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return apperrors.WrapWithMessage(err, apperrors.Download, "computing checksum")
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return apperrors.NewDownloadError(
			fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", path, expected, actual),
			"delete the file and rerun so it is downloaded again",
		)
	}

	return nil
}
