package dj

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// Resolver turns a free-text query into a Track. The default implementation
// pulls metadata for YouTube links; anything else becomes a bare titled track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Track, error)
}

// youtubeResolver resolves YouTube URLs and IDs through the YouTube client.
type youtubeResolver struct {
	client youtube.Client
}

// NewResolver returns the production resolver.
func NewResolver() Resolver {
	return &youtubeResolver{}
}

func (r *youtubeResolver) Resolve(ctx context.Context, query string) (Track, error) {
	if !isYouTubeLink(query) {
		return Track{Title: query}, nil
	}

	video, err := r.client.GetVideoContext(ctx, query)
	if err != nil {
		return Track{}, fmt.Errorf("resolve %q: %w", query, err)
	}
	return Track{
		Title:    video.Title,
		URL:      query,
		Artist:   video.Author,
		Duration: formatDuration(video.Duration),
	}, nil
}

func isYouTubeLink(s string) bool {
	return strings.Contains(s, "youtube.com/") || strings.Contains(s, "youtu.be/")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
