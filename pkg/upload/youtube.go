package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tripcast/pkg/config"
)

const (
	maxTitleLen = 100
	watchURL    = "https://www.youtube.com/watch?v="
)

// YouTubeUploader inserts videos with the YouTube Data API and adds them to
// a playlist when one is configured.
type YouTubeUploader struct {
	cfg config.YouTubeConfig

	// serviceOpts replaces the OAuth client when set.
	serviceOpts []option.ClientOption
}

// NewYouTubeUploader creates an uploader. Credentials are read on first use.
func NewYouTubeUploader(cfg config.YouTubeConfig) *YouTubeUploader {
	return &YouTubeUploader{cfg: cfg}
}

// Upload inserts the video and returns its ID and watch URL.
func (u *YouTubeUploader) Upload(ctx context.Context, req Request) (*Result, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(req.Title),
			Description: stripAngles(req.Description),
			CategoryId:  u.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: u.cfg.PrivacyStatus},
	}
	if req.Keyword != "" {
		video.Snippet.Tags = []string{req.Keyword}
	}

	slog.Info("Uploading to YouTube", "file", req.VideoPath, "title", video.Snippet.Title)
	inserted, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube insert failed: %w", err)
	}

	res := &Result{ID: inserted.Id, URL: watchURL + inserted.Id}

	if u.cfg.PlaylistID != "" {
		item := &youtube.PlaylistItem{
			Snippet: &youtube.PlaylistItemSnippet{
				PlaylistId: u.cfg.PlaylistID,
				ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: inserted.Id},
			},
		}
		if _, err := svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
			// The video is already public at this point; report it alongside the error.
			return res, fmt.Errorf("video %s uploaded but adding to playlist %s failed: %w", inserted.Id, u.cfg.PlaylistID, err)
		}
		slog.Info("Added to playlist", "playlist", u.cfg.PlaylistID, "video", inserted.Id)
	}

	return res, nil
}

func (u *YouTubeUploader) service(ctx context.Context) (*youtube.Service, error) {
	if len(u.serviceOpts) > 0 {
		return youtube.NewService(ctx, u.serviceOpts...)
	}

	oc, err := u.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(u.cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("no youtube token at %s (run with -youtube-auth first): %w", u.cfg.TokenPath, err)
	}

	ts := oc.TokenSource(ctx, tok)
	// Persist refreshed tokens so the next run does not need a new consent.
	refreshed, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube token refresh failed: %w", err)
	}
	if refreshed.AccessToken != tok.AccessToken {
		if err := saveToken(u.cfg.TokenPath, refreshed); err != nil {
			slog.Warn("Failed to save refreshed youtube token", "error", err)
		}
	}

	return youtube.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(refreshed, ts)))
}

func (u *YouTubeUploader) oauthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(u.cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oc, err := google.ConfigFromJSON(b, youtube.YoutubeUploadScope, youtube.YoutubeScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return oc, nil
}

// Authorize runs the loopback consent flow: it prints the consent URL to out,
// waits for the redirect and stores the token at cfg.TokenPath.
func (u *YouTubeUploader) Authorize(ctx context.Context, out io.Writer) error {
	oc, err := u.oauthConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for oauth callback: %w", err)
	}
	defer ln.Close()

	oc.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "code missing", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "Authorization received. You can close this tab.")
		select {
		case codeCh <- code:
		default:
		}
	})
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(out, "Open this URL to authorize YouTube uploads:\n%s\n",
		oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codeCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(u.cfg.TokenPath, tok)
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// videoTitle drops the characters YouTube rejects and caps the length.
func videoTitle(title string) string {
	title = strings.TrimSpace(stripAngles(title))
	if title == "" {
		title = "Untitled Experience"
	}
	r := []rune(title)
	if len(r) > maxTitleLen {
		title = strings.TrimSpace(string(r[:maxTitleLen]))
	}
	return title
}

func stripAngles(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}
