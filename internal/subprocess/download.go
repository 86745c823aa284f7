package subprocess

import (
	"context"
	"fmt"
)

// Downloader implements ports.VideoDownloadPort by shelling out to an
// external downloader binary (e.g. yt-dlp) capable of resolving a wide
// range of source URLs to a single local file.
type Downloader struct {
	binary string
}

// NewDownloader constructs a Downloader. binary defaults to "yt-dlp".
func NewDownloader(binary string) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{binary: binary}
}

// Download fetches sourceURL to destPath.
func (d *Downloader) Download(ctx context.Context, sourceURL string, destPath string) error {
	if err := run(ctx, d.binary, "--no-playlist", "-o", destPath, sourceURL); err != nil {
		return fmt.Errorf("downloading %s: %w", sourceURL, err)
	}
	return nil
}
