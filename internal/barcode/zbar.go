// Package barcode decodes barcode images by shelling out to zbarimg.
// Decoding stays outside the core: this is a thin adapter over an
// external tool, swappable behind collect.BarcodeDecoder.
package barcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/receiptwise/receiptwise/internal/collect"
)

// ZbarDecoder implements collect.BarcodeDecoder using the zbarimg CLI
// from the zbar-tools package.
type ZbarDecoder struct {
	// Binary overrides the zbarimg executable name, mainly for tests.
	Binary string
}

// NewZbarDecoder returns a decoder using zbarimg from PATH.
func NewZbarDecoder() *ZbarDecoder {
	return &ZbarDecoder{Binary: "zbarimg"}
}

// Decode writes the image to a temp file and runs zbarimg over it. Each
// output line is one decoded symbol payload. zbarimg exits 4 when it
// finds no symbol, which is reported as an empty slice, not an error.
func (d *ZbarDecoder) Decode(ctx context.Context, image []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "barcode-*.img")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp image: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, d.Binary, "--raw", "-q", tmp.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 4 {
			return nil, nil
		}
		return nil, &collect.DecodeError{Reason: strings.TrimSpace(stderr.String() + " " + err.Error())}
	}

	var codes []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			codes = append(codes, line)
		}
	}
	return codes, nil
}
