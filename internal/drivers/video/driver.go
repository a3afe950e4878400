// -----------------------------------------------------------------------
// Driver lists a channel's videos page-by-page for video-discovery, and
// downloads/transcribes a single video for video-processing (spec.md
// §4.2 "Video-discovery", §4.3's video-processing handler).
// -----------------------------------------------------------------------

package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// ListedVideo is one entry from a channel's listing page.
type ListedVideo struct {
	ExternalID   string
	Title        string
	URL          string
	ThumbnailURL string
}

// ListResult is one tick's page of a channel's video listing.
type ListResult struct {
	Videos       []ListedVideo
	EndOfChannel bool
	ChannelName  string
	AvatarURL    string
}

// Transcript is one video's speech-to-text output, already segmented into
// timestamped spans the video-processing handler turns into snippets.
type Transcript struct {
	Segments []Segment
}

type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

type Driver struct {
	logger    arbor.ILogger
	userAgent string
	timeout   time.Duration
}

func New(userAgent string, timeout time.Duration, logger arbor.ILogger) *Driver {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Driver{logger: logger, userAgent: userAgent, timeout: timeout}
}

// ListPage fetches videos [offset+1, offset+limit] from a channel's
// listing, relying on the site's own pagination rather than a scroll
// simulation.
func (d *Driver) ListPage(ctx context.Context, channelID string, offset, limit int) (*ListResult, error) {
	listingURL := fmt.Sprintf("https://www.youtube.com/channel/%s/videos?offset=%d&limit=%d", channelID, offset, limit)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.UserAgent(d.userAgent),
		)...,
	)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, cancel := context.WithTimeout(browserCtx, d.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(listingURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return nil, fmt.Errorf("video driver: render %s: %w", listingURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("video driver: parse %s: %w", listingURL, err)
	}

	var videos []ListedVideo
	doc.Find("[data-video-id]").Each(func(_ int, s *goquery.Selection) {
		videos = append(videos, ListedVideo{
			ExternalID:   s.AttrOr("data-video-id", ""),
			Title:        strings.TrimSpace(s.Find(".title").Text()),
			URL:          s.AttrOr("data-video-url", ""),
			ThumbnailURL: s.AttrOr("data-thumbnail-url", ""),
		})
	})

	return &ListResult{
		Videos:       videos,
		EndOfChannel: len(videos) < limit,
		ChannelName:  strings.TrimSpace(doc.Find("[data-channel-name]").First().Text()),
		AvatarURL:    doc.Find("[data-channel-avatar]").First().AttrOr("src", ""),
	}, nil
}

// Transcribe downloads videoURL's audio track with yt-dlp, extracts a
// normalized WAV with ffmpeg, and runs a local speech-to-text binary that
// emits a JSON segment list on stdout. Each stage is worker-local: no
// state survives this call (spec.md §5 "external resources are strictly
// worker-local").
func (d *Driver) Transcribe(ctx context.Context, videoURL, workDir, speechToTextBin string) (*Transcript, error) {
	audioPath := workDir + "/audio.m4a"
	wavPath := workDir + "/audio.wav"

	if err := exec.CommandContext(ctx, "yt-dlp", "-f", "bestaudio", "-o", audioPath, videoURL).Run(); err != nil {
		return nil, fmt.Errorf("video driver: yt-dlp download: %w", err)
	}
	if err := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", audioPath, "-ar", "16000", "-ac", "1", wavPath).Run(); err != nil {
		return nil, fmt.Errorf("video driver: ffmpeg convert: %w", err)
	}

	out, err := exec.CommandContext(ctx, speechToTextBin, "--json", wavPath).Output()
	if err != nil {
		return nil, fmt.Errorf("video driver: speech-to-text: %w", err)
	}

	var segments []Segment
	if err := json.Unmarshal(out, &segments); err != nil {
		return nil, fmt.Errorf("video driver: parse transcript: %w", err)
	}
	return &Transcript{Segments: segments}, nil
}
