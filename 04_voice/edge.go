package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const edgeOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

// EdgeTTS synthesizes speech over the Edge read-aloud websocket.
type EdgeTTS struct {
	BaseURL            string
	Origin             string
	UserAgent          string
	TrustedClientToken string
	SecMSGecVersion    string
	Voice              string

	dialer *websocket.Dialer
	now    func() time.Time
}

// NewEdgeTTSFromEnv reads the endpoint parameters from EDGE_TTS_* variables.
func NewEdgeTTSFromEnv(voice string) *EdgeTTS {
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	return &EdgeTTS{
		BaseURL:            os.Getenv("EDGE_TTS_BASE_URL"),
		Origin:             os.Getenv("EDGE_TTS_ORIGIN"),
		UserAgent:          os.Getenv("EDGE_TTS_USER_AGENT"),
		TrustedClientToken: os.Getenv("EDGE_TTS_TRUSTED_CLIENT_TOKEN"),
		SecMSGecVersion:    os.Getenv("EDGE_TTS_SEC_MS_GEC_VERSION"),
		Voice:              voice,
	}
}

func (e *EdgeTTS) Name() string { return "edge-tts" }

func (e *EdgeTTS) validate() error {
	var missing []string
	for _, f := range [][2]string{
		{"EDGE_TTS_BASE_URL", e.BaseURL},
		{"EDGE_TTS_ORIGIN", e.Origin},
		{"EDGE_TTS_USER_AGENT", e.UserAgent},
		{"EDGE_TTS_TRUSTED_CLIENT_TOKEN", e.TrustedClientToken},
		{"EDGE_TTS_SEC_MS_GEC_VERSION", e.SecMSGecVersion},
	} {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("edge tts not configured, missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Synthesize streams the MP3 frames for text into outputPath.
func (e *EdgeTTS) Synthesize(ctx context.Context, text, outputPath string) error {
	if err := e.validate(); err != nil {
		return err
	}

	conn, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := sendSpeechConfig(conn); err != nil {
		return err
	}
	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	ssml := buildSSML(e.Voice, text)
	msg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("send ssml: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := consume(ctx, conn, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *EdgeTTS) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Origin", e.Origin)
	header.Set("User-Agent", e.UserAgent)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Cookie", "muid="+strings.ReplaceAll(uuid.New().String(), "-", ""))

	now := time.Now
	if e.now != nil {
		now = e.now
	}
	q := url.Values{}
	q.Set("TrustedClientToken", e.TrustedClientToken)
	q.Set("Sec-MS-GEC", secMSGec(e.TrustedClientToken, now()))
	q.Set("Sec-MS-GEC-Version", e.SecMSGecVersion)
	u := e.BaseURL + "?" + q.Encode()

	dialer := websocket.DefaultDialer
	if e.dialer != nil {
		dialer = e.dialer
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		conn, resp, err := dialer.DialContext(ctx, u, header)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if resp != nil {
			slog.Warn("Edge TTS handshake failed", "status", resp.StatusCode, "attempt", attempt)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("edge tts dial: %w", lastErr)
}

// secMSGec derives the Sec-MS-GEC token: sha256 of the Windows file time,
// rounded down to 5 minutes, followed by the client token.
func secMSGec(token string, now time.Time) string {
	ticks := now.Unix() + 11644473600
	ticks -= ticks % 300
	raw := fmt.Sprintf("%d0000000%s", ticks, token)
	sum := sha256.Sum256([]byte(raw))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func sendSpeechConfig(conn *websocket.Conn) error {
	msg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + edgeOutputFormat + `"}}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("send speech.config: %w", err)
	}
	return nil
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func buildSSML(voice, text string) string {
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'><voice name='%s'><prosody rate='-10%%'>%s</prosody></voice></speak>",
		voice, ssmlEscaper.Replace(text))
}

func consume(ctx context.Context, conn *websocket.Conn, w io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.BinaryMessage:
			if err := writeAudioFrame(data, w); err != nil {
				return err
			}
		}
	}
}

// writeAudioFrame strips the big-endian length-prefixed header from a
// binary frame and writes the remaining audio bytes.
func writeAudioFrame(data []byte, w io.Writer) error {
	if len(data) < 2 {
		return nil
	}
	headerLen := int(data[0])<<8 | int(data[1])
	if len(data) < 2+headerLen {
		return nil
	}
	audio := data[2+headerLen:]
	if len(audio) == 0 {
		return nil
	}
	if _, err := w.Write(audio); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}
