// Package youtube implements the upload adapter on the YouTube Data API v3
// with an OAuth2 refresh-token credential.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"video-autopilot/internal/pipeline"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultCategoryID = "22" // People & Blogs

// Credentials is the OAuth2 refresh-token credential set for the channel.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Uploader publishes videos to a YouTube channel. It implements
// pipeline.Uploader.
type Uploader struct {
	creds      Credentials
	visibility string
	categoryID string
	log        *slog.Logger

	// newService is swapped in tests to avoid real API construction.
	newService func(ctx context.Context) (*youtube.Service, error)
}

// New returns an Uploader publishing with the given visibility
// ("public", "private", or "unlisted").
func New(creds Credentials, visibility string, log *slog.Logger) *Uploader {
	u := &Uploader{
		creds:      creds,
		visibility: visibility,
		categoryID: defaultCategoryID,
		log:        log,
	}
	u.newService = u.buildService
	return u
}

func (u *Uploader) buildService(ctx context.Context) (*youtube.Service, error) {
	conf := &oauth2.Config{
		ClientID:     u.creds.ClientID,
		ClientSecret: u.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh on first use
	}
	return youtube.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
}

// Upload implements pipeline.Uploader. asShort tags the video for the
// short-form destination; the platform routes by the #Shorts marker.
func (u *Uploader) Upload(ctx context.Context, path string, meta pipeline.Metadata, asShort bool) (string, error) {
	if !u.creds.complete() {
		return "", fmt.Errorf("%w: youtube oauth credentials not set", pipeline.ErrConfig)
	}

	svc, err := u.newService(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: youtube service: %v", pipeline.ErrConfig, err)
	}

	title, description := meta.Title, meta.Description
	if asShort {
		title = shortTitle(title)
		description = strings.TrimSpace(description + "\n\n#Shorts")
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        meta.Tags,
			CategoryId:  u.categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.visibility,
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	u.log.Info("uploading video",
		slog.String("title", title),
		slog.Bool("short_form", asShort),
	)

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	if uploaded.Id == "" {
		return "", pipeline.ErrUpload
	}

	u.log.Info("video uploaded",
		slog.String("video_id", uploaded.Id),
		slog.String("url", "https://www.youtube.com/watch?v="+uploaded.Id),
	)
	return uploaded.Id, nil
}

// shortTitle appends the #Shorts marker without breaching the title limit.
func shortTitle(title string) string {
	const marker = " #Shorts"
	if strings.Contains(title, "#Shorts") {
		return title
	}
	if len(title)+len(marker) > 100 {
		title = title[:100-len(marker)]
	}
	return title + marker
}

// classifyAPIError maps Data API failures onto the error taxonomy. Daily and
// weekly upload caps arrive as 403s with quota reasons.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "uploadLimitExceeded":
				return fmt.Errorf("%w: youtube: %s", pipeline.ErrQuota, e.Reason)
			}
		}
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return fmt.Errorf("%w: youtube HTTP %d: %s", pipeline.ErrConfig, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%w: youtube HTTP %d: %s", pipeline.ErrProvider, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: youtube upload: %v", pipeline.ErrProvider, err)
}
