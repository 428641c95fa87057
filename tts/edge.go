package tts

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Edge neural speech websocket endpoint. The service streams binary audio
// frames interleaved with metadata messages carrying word-boundary events in
// 100-nanosecond ticks.
const (
	edgeWSSURL   = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	// ticksPerSecond converts the service's 100-ns offsets to seconds.
	ticksPerSecond = 10_000_000.0
)

type edgeMetadata struct {
	Metadata []struct {
		Type string `json:"Type"`
		Data struct {
			Offset   int64 `json:"Offset"`
			Duration int64 `json:"Duration"`
			Text     struct {
				Text string `json:"Text"`
			} `json:"text"`
		} `json:"Data"`
	} `json:"Metadata"`
}

type rawBoundary struct {
	Word     string
	Offset   int64 // 100-ns ticks
	Duration int64 // 100-ns ticks
}

// synthesizeOnce runs one full websocket turn and returns the raw audio
// bytes plus the word-boundary events in ticks.
func synthesizeOnce(ctx context.Context, text, voice string, rate float64) ([]byte, []rawBoundary, error) {
	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	header := http.Header{}
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", edgeWSSURL, trustedToken, connID)
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, nil, fmt.Errorf("dial speech service: %w", err)
	}
	defer conn.Close()

	// Closing the conn is the only way to unblock ReadMessage when the run
	// is canceled mid-turn.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watcherDone:
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return nil, nil, fmt.Errorf("send speech.config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(connID, text, voice, rate))); err != nil {
		return nil, nil, fmt.Errorf("send ssml: %w", err)
	}

	var audio []byte
	var boundaries []rawBoundary

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, nil, fmt.Errorf("read speech stream: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			headers, body := splitTurnMessage(data)
			switch headers["Path"] {
			case "audio.metadata":
				var meta edgeMetadata
				if err := json.Unmarshal(body, &meta); err != nil {
					continue // malformed metadata is not fatal, audio still plays
				}
				for _, m := range meta.Metadata {
					if m.Type != "WordBoundary" {
						continue
					}
					boundaries = append(boundaries, rawBoundary{
						Word:     m.Data.Text.Text,
						Offset:   m.Data.Offset,
						Duration: m.Data.Duration,
					})
				}
			case "turn.end":
				if len(audio) == 0 {
					return nil, nil, fmt.Errorf("speech service returned no audio")
				}
				return audio, boundaries, nil
			}

		case websocket.BinaryMessage:
			// Binary frames: 2-byte big-endian header length, header text,
			// then the mp3 payload.
			if len(data) < 2 {
				continue
			}
			headerLen := int(binary.BigEndian.Uint16(data[:2]))
			if len(data) < 2+headerLen {
				continue
			}
			if strings.Contains(string(data[2:2+headerLen]), "Path:audio") {
				audio = append(audio, data[2+headerLen:]...)
			}
		}
	}
}

func speechConfigMessage() string {
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"true"},"outputFormat":"` + outputFormat + `"}}}}`
}

func ssmlMessage(requestID, text, voice string, rate float64) string {
	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>`+
			`<voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='+0%%'>%s</prosody></voice></speak>`,
		voice, rateAttr(rate), escapeSSML(text),
	)
	return "X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml
}

// rateAttr maps a speaking-rate multiplier to the prosody percentage the
// service expects: 1.0 -> "+0%", 1.15 -> "+15%", 0.9 -> "-10%".
func rateAttr(rate float64) string {
	pct := int((rate - 1.0) * 100)
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

func escapeSSML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", `"`, "&quot;")
	return r.Replace(s)
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

func splitTurnMessage(data []byte) (map[string]string, []byte) {
	headers := make(map[string]string)
	s := string(data)
	idx := strings.Index(s, "\r\n\r\n")
	if idx < 0 {
		return headers, nil
	}
	for _, line := range strings.Split(s[:idx], "\r\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return headers, data[idx+4:]
}
