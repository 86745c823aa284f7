package subprocess

import (
	"context"
	"fmt"
)

// Encoder implements ports.VideoEncodePort over an ffmpeg binary.
type Encoder struct {
	binary string
}

// NewEncoder constructs an Encoder. binary defaults to "ffmpeg".
func NewEncoder(binary string) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{binary: binary}
}

// Encode runs ffmpeg over inputPath, writing outputPath, with caller
// supplied args inserted between -i and the output path.
func (e *Encoder) Encode(ctx context.Context, inputPath string, outputPath string, args []string) error {
	cmdArgs := append([]string{"-y", "-i", inputPath}, args...)
	cmdArgs = append(cmdArgs, outputPath)
	if err := run(ctx, e.binary, cmdArgs...); err != nil {
		return fmt.Errorf("encoding %s to %s: %w", inputPath, outputPath, err)
	}
	return nil
}
