package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	YOUTUBE_SVC = "youtube_svc"

	playlistPageSize  = 50
	metadataCacheTTL  = 10 * time.Minute
	defaultYTTimeout  = 15 * time.Second
	youtubeWatchURL   = "https://www.youtube.com/watch?v="
	youtubeEmbedURL   = "https://www.youtube.com/embed/"
	youtubeListURL    = "https://www.youtube.com/playlist?list="
	metadataCacheKeyP = "ytmeta:"
)

var (
	videoIDPattern    = regexp.MustCompile(`(?:v=|youtu\.be/|embed/|shorts/)([a-zA-Z0-9_-]{11})`)
	playlistIDPattern = regexp.MustCompile(`list=([a-zA-Z0-9_-]+)`)
	isoDurationRegex  = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

	errContentNotFound = errors.New("content not found")
)

// ContentResolver turns a content URL into metadata.
type ContentResolver interface {
	Resolve(ctx context.Context, rawURL string) (*dto.ContentMetadata, error)
}

// ParseContentURL extracts the content kind and id. Video ids win over
// playlist ids when a URL carries both.
func ParseContentURL(rawURL string) (string, string, error) {
	if m := videoIDPattern.FindStringSubmatch(rawURL); m != nil {
		return shared.ContentTypeVideo, m[1], nil
	}
	if m := playlistIDPattern.FindStringSubmatch(rawURL); m != nil {
		return shared.ContentTypePlaylist, m[1], nil
	}
	return "", "", fmt.Errorf("no video or playlist id in %q", rawURL)
}

func VideoURL(videoID string) string {
	return youtubeWatchURL + videoID
}

func EmbedURL(videoID string) string {
	return youtubeEmbedURL + videoID
}

// FormatISODuration renders an ISO-8601 duration as m:ss or h:mm:ss. Input
// that does not parse is returned unchanged.
func FormatISODuration(iso string) string {
	m := isoDurationRegex.FindStringSubmatch(iso)
	if m == nil || iso == "P" || iso == "PT" {
		return iso
	}

	part := func(s string) int {
		if s == "" {
			return 0
		}
		f, _ := strconv.ParseFloat(s, 64)
		return int(f)
	}

	total := part(m[1])*86400 + part(m[2])*3600 + part(m[3])*60 + part(m[4])
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

type YouTubeService struct {
	appcontext.DefaultService

	apiKey   string
	endpoint string
	maxItems int
	timeout  time.Duration

	yt     *youtube.Service
	cache  *RedisService
	flight singleflight.Group
}

func (svc *YouTubeService) Id() string {
	return YOUTUBE_SVC
}

func (svc *YouTubeService) Configure(ctx *appcontext.Context) error {
	svc.apiKey = os.Getenv("YOUTUBE_API_KEY")
	svc.endpoint = os.Getenv("YOUTUBE_API_ENDPOINT")

	if v := os.Getenv("YOUTUBE_MAX_PLAYLIST_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid YOUTUBE_MAX_PLAYLIST_ITEMS %q", v)
		}
		svc.maxItems = n
	}

	svc.timeout = defaultYTTimeout
	if v := os.Getenv("YOUTUBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid YOUTUBE_TIMEOUT %q: %w", v, err)
		}
		svc.timeout = d
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *YouTubeService) Start() error {
	if svc.apiKey == "" {
		return errors.New("YOUTUBE_API_KEY is required")
	}
	svc.cache = svc.Service(REDIS_SVC).(*RedisService)
	return svc.connect(context.Background())
}

func (svc *YouTubeService) connect(ctx context.Context) error {
	opts := []option.ClientOption{option.WithAPIKey(svc.apiKey)}
	if svc.endpoint != "" {
		opts = append(opts, option.WithEndpoint(svc.endpoint))
	}

	yt, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}
	svc.yt = yt
	return nil
}

// Resolve fetches metadata for a video or playlist URL. Concurrent lookups
// of the same content share one upstream call.
func (svc *YouTubeService) Resolve(ctx context.Context, rawURL string) (*dto.ContentMetadata, error) {
	kind, id, err := ParseContentURL(rawURL)
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid YouTube URL")
	}

	cacheKey := metadataCacheKeyP + kind + ":" + id
	var cached dto.ContentMetadata
	if ok, err := svc.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return &cached, nil
	}

	v, err, _ := svc.flight.Do(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.timeout)
		defer cancel()

		if kind == shared.ContentTypeVideo {
			return svc.fetchVideo(fetchCtx, id)
		}
		return svc.fetchPlaylist(fetchCtx, id)
	})
	if err != nil {
		if errors.Is(err, errContentNotFound) {
			return nil, shared.NewNotFoundError(err, "Content not found")
		}
		log.WithError(err).WithFields(log.Fields{"type": kind, "id": id}).Warn("YouTube lookup failed")
		return nil, shared.NewUpstreamError(err, "Failed to fetch content metadata")
	}

	meta := v.(*dto.ContentMetadata)
	if svc.cache.Enabled() {
		if err := svc.cache.Set(ctx, cacheKey, meta, metadataCacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache content metadata")
		}
	}
	return meta, nil
}

func highThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func (svc *YouTubeService) fetchVideo(ctx context.Context, id string) (*dto.ContentMetadata, error) {
	res, err := svc.yt.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 || res.Items[0].Snippet == nil {
		return nil, errContentNotFound
	}

	item := res.Items[0]
	meta := &dto.ContentMetadata{
		Type:        shared.ContentTypeVideo,
		ID:          id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Channel:     item.Snippet.ChannelTitle,
		PublishedAt: item.Snippet.PublishedAt,
		Thumbnail:   highThumbnail(item.Snippet.Thumbnails),
		URL:         VideoURL(id),
	}
	if item.ContentDetails != nil {
		meta.Duration = FormatISODuration(item.ContentDetails.Duration)
	}
	if item.Statistics != nil {
		meta.ViewCount = item.Statistics.ViewCount
		meta.LikeCount = item.Statistics.LikeCount
	}
	return meta, nil
}

func (svc *YouTubeService) fetchPlaylist(ctx context.Context, id string) (*dto.ContentMetadata, error) {
	res, err := svc.yt.Playlists.
		List([]string{"snippet", "contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 || res.Items[0].Snippet == nil {
		return nil, errContentNotFound
	}

	item := res.Items[0]
	meta := &dto.ContentMetadata{
		Type:        shared.ContentTypePlaylist,
		ID:          id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Channel:     item.Snippet.ChannelTitle,
		PublishedAt: item.Snippet.PublishedAt,
		Thumbnail:   highThumbnail(item.Snippet.Thumbnails),
		URL:         youtubeListURL + id,
	}
	if item.ContentDetails != nil {
		meta.ItemCount = item.ContentDetails.ItemCount
	}

	videos, err := svc.fetchPlaylistItems(ctx, id)
	if err != nil {
		return nil, err
	}
	meta.Videos = videos
	return meta, nil
}

func (svc *YouTubeService) fetchPlaylistItems(ctx context.Context, playlistID string) ([]dto.PlaylistItem, error) {
	var videos []dto.PlaylistItem
	pageToken := ""

	for {
		pageSize := int64(playlistPageSize)
		if svc.maxItems > 0 {
			remaining := svc.maxItems - len(videos)
			if remaining <= 0 {
				break
			}
			if int64(remaining) < pageSize {
				pageSize = int64(remaining)
			}
		}

		call := svc.yt.PlaylistItems.
			List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, it := range res.Items {
			if it.Snippet == nil || it.Snippet.ResourceId == nil || it.Snippet.ResourceId.Kind != "youtube#video" {
				continue
			}
			videoID := it.Snippet.ResourceId.VideoId
			videos = append(videos, dto.PlaylistItem{
				VideoID:     videoID,
				Title:       it.Snippet.Title,
				Description: it.Snippet.Description,
				Thumbnail:   highThumbnail(it.Snippet.Thumbnails),
				Position:    int(it.Snippet.Position) + 1,
				URL:         VideoURL(videoID),
			})
			if svc.maxItems > 0 && len(videos) >= svc.maxItems {
				return videos, nil
			}
		}

		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return videos, nil
}
