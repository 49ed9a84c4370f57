package server

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"midorime/internal/camera"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// partBoundary はmultipartストリームの境界文字列
// Content-Typeヘッダーと各境界マーカーで同一の値を使う
const partBoundary = "123456789000000000000987654321"

const streamContentType = "multipart/x-mixed-replace;boundary=" + partBoundary

const boundaryMarker = "\r\n--" + partBoundary + "\r\n"

// Stream はMJPEGストリームを配信する
//
// 取得失敗・エンコード失敗・書き込み失敗のいずれかが起きるまで
// フレームを送り続ける。失敗はクライアントへは通知せず、
// ストリームを終了してログに残すだけにする。
func (h *Handler) Stream(c *gin.Context) {
	c.Header("Content-Type", streamContentType)

	writer := c.Writer
	session := uuid.New().String()
	log.Printf("ストリーミングを開始しました: session=%s client=%s", session, c.ClientIP())

	frames := 0
	for {
		if err := h.writePart(writer); err != nil {
			log.Printf("ストリーミングを終了します: session=%s frames=%d 理由: %v", session, frames, err)
			return
		}
		writer.Flush()
		frames++
	}
}

// writePart は1フレームを取得してmultipartの1パートとして書き込む
//
// フレームはどの経路でも必ず1回だけ返却される。
// 生フレームはエンコード直後に返却し、JPEGフレームは
// ゼロコピーのまま書き込み完了後に返却する。
func (h *Handler) writePart(w io.Writer) error {
	frame, err := h.source.Acquire()
	if err != nil {
		return fmt.Errorf("フレーム取得に失敗: %w", err)
	}

	payload := frame.Data
	if frame.Format != camera.FormatJPEG {
		payload, err = h.encoder.Encode(frame, camera.JPEGQuality(h.params.Get().Quality))
		frame.Release()
		frame = nil
		if err != nil {
			return fmt.Errorf("JPEGエンコードに失敗: %w", err)
		}
	}
	if frame != nil {
		defer frame.Release()
	}

	if _, err := io.WriteString(w, boundaryMarker); err != nil {
		return fmt.Errorf("境界マーカーの書き込みに失敗: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Content-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(payload)); err != nil {
		return fmt.Errorf("パートヘッダーの書き込みに失敗: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("フレームの書き込みに失敗: %w", err)
	}

	return nil
}

// upgrader はWebSocket接続へのアップグレード設定
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocket はWebSocket経由でJPEGフレームをバイナリ配信する
func (h *Handler) WebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketアップグレードに失敗しました: %v", err)
		return
	}
	defer conn.Close()

	session := uuid.New().String()
	log.Printf("WebSocket配信を開始しました: session=%s client=%s", session, c.ClientIP())

	frames := 0
	for {
		payload, err := h.grabJPEG()
		if err != nil {
			log.Printf("WebSocket配信を終了します: session=%s frames=%d 理由: %v", session, frames, err)
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			log.Printf("WebSocket配信を終了します: session=%s frames=%d 理由: %v", session, frames, err)
			return
		}
		frames++
	}
}

// grabJPEG は1フレームを取得してJPEGバイト列として返す
// 返却前にソースのバッファからコピーするため、呼び出し側は
// フレームのライフサイクルを意識しなくてよい
func (h *Handler) grabJPEG() ([]byte, error) {
	frame, err := h.source.Acquire()
	if err != nil {
		return nil, fmt.Errorf("フレーム取得に失敗: %w", err)
	}

	if frame.Format == camera.FormatJPEG {
		payload := make([]byte, len(frame.Data))
		copy(payload, frame.Data)
		frame.Release()
		return payload, nil
	}

	payload, err := h.encoder.Encode(frame, camera.JPEGQuality(h.params.Get().Quality))
	frame.Release()
	if err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return payload, nil
}
