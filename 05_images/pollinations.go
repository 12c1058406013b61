package images

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pollinationsBaseURL = "https://image.pollinations.ai/prompt/"

// Pollinations fetches images from Pollinations.ai. No key is needed.
type Pollinations struct {
	baseURL    string
	httpClient *http.Client
}

// NewPollinations creates a fetcher. baseURL may be empty.
func NewPollinations(baseURL string) *Pollinations {
	if baseURL == "" {
		baseURL = pollinationsBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Pollinations{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Pollinations) Name() string { return "pollinations" }

// Generate downloads one image. The safety level is not supported by the
// service and is ignored.
func (p *Pollinations) Generate(ctx context.Context, prompt, aspectRatio, _ string) ([]byte, error) {
	w, h := dimensions(aspectRatio)
	seed := fnv.New32a()
	seed.Write([]byte(prompt))

	imageURL := fmt.Sprintf("%s%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		p.baseURL, url.PathEscape(prompt), w, h, seed.Sum32()%100000)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; EcoReelPipeline/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from Pollinations", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// error pages come back tiny
	if len(data) < 100 {
		return nil, fmt.Errorf("%w: response too small (%d bytes)", ErrEmptyImage, len(data))
	}
	return data, nil
}

func dimensions(aspect string) (int, int) {
	switch aspect {
	case "16:9":
		return 1920, 1080
	case "1:1":
		return 1080, 1080
	case "4:3":
		return 1440, 1080
	case "3:4":
		return 1080, 1440
	default:
		return 1080, 1920
	}
}
