package server

import (
	_ "embed"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"midorime/internal/actuator"
	"midorime/internal/camera"
	"midorime/internal/sensors"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

// errUnknownParameter は未知のコントロールパラメータ名のエラー
// リクエスト検証の失敗として404で返し、ハードウェアに拒否された
// 値（500）とは区別する
var errUnknownParameter = errors.New("未知のコントロールパラメータです")

// Handler は各HTTPエンドポイントの実装を提供する
type Handler struct {
	source  camera.Source
	params  camera.ParamStore
	encoder camera.Encoder
	sensors sensors.Reader
	flash   actuator.Flash
}

// NewHandler は新しいHandlerを作成する
func NewHandler(source camera.Source, params camera.ParamStore, encoder camera.Encoder, reader sensors.Reader, flash actuator.Flash) *Handler {
	return &Handler{
		source:  source,
		params:  params,
		encoder: encoder,
		sensors: reader,
		flash:   flash,
	}
}

// statusResponse は /status のレスポンス
// フィールドの定義順がそのままJSONの出力順になる
type statusResponse struct {
	FrameSize    int     `json:"framesize"`
	Quality      int     `json:"quality"`
	Brightness   int     `json:"brightness"`
	Contrast     int     `json:"contrast"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture int     `json:"soilMoisture"`
}

// Index はフロントエンドのHTMLページを返す
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// Capture は1フレームをキャプチャしてJPEG画像として返す
// フレームはどの経路でも必ず1回だけ返却される
func (h *Handler) Capture(c *gin.Context) {
	start := time.Now()

	frame, err := h.source.Acquire()
	if err != nil {
		log.Printf("フレーム取得に失敗しました: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer frame.Release()

	payload := frame.Data
	if frame.Format != camera.FormatJPEG {
		payload, err = h.encoder.Encode(frame, camera.JPEGQuality(h.params.Get().Quality))
		if err != nil {
			log.Printf("JPEGエンコードに失敗しました: %v", err)
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	c.Header("Content-Disposition", "inline; filename=capture.jpg")
	c.Data(http.StatusOK, "image/jpeg", payload)
	log.Printf("JPG: %dB %dms", len(payload), time.Since(start).Milliseconds())
}

// Status は現在のカメラパラメータとセンサー値を返す
func (h *Handler) Status(c *gin.Context) {
	params := h.params.Get()

	// センサー読み取りの失敗はステータス自体の失敗にはしない
	snapshot, err := h.sensors.ReadSnapshot()
	if err != nil {
		log.Printf("センサー読み取りに失敗しました: %v", err)
	}

	c.JSON(http.StatusOK, statusResponse{
		FrameSize:    params.FrameSize,
		Quality:      params.Quality,
		Brightness:   params.Brightness,
		Contrast:     params.Contrast,
		Temperature:  snapshot.Temperature,
		Humidity:     snapshot.Humidity,
		SoilMoisture: snapshot.SoilMoisture,
	})
}

// Control はカメラパラメータを変更する
// var と val の両方が必要で、欠落・不正は404、設定失敗は500を返す
func (h *Handler) Control(c *gin.Context) {
	name := c.Query("var")
	value := c.Query("val")
	if name == "" || value == "" {
		c.Status(http.StatusNotFound)
		return
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	var res error
	switch name {
	case "framesize":
		// フレームサイズはJPEG出力時のみ変更できる
		if h.source.Format() == camera.FormatJPEG {
			res = h.params.SetFrameSize(val)
		}
	case "quality":
		res = h.params.SetQuality(val)
	case "contrast":
		res = h.params.SetContrast(val)
	case "brightness":
		res = h.params.SetBrightness(val)
	case "flash":
		res = h.flash.Set(val)
	default:
		res = errUnknownParameter
	}

	if res != nil {
		log.Printf("コントロール設定に失敗しました: var=%s val=%d: %v", name, val, res)
		if errors.Is(res, errUnknownParameter) {
			c.Status(http.StatusNotFound)
		} else {
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)
}

// Sensors は現在のセンサー値を返す
func (h *Handler) Sensors(c *gin.Context) {
	snapshot, err := h.sensors.ReadSnapshot()
	if err != nil {
		log.Printf("センサー読み取りに失敗しました: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, snapshot)
}

// corsMiddleware は全レスポンスにCORSヘッダーを付与する
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}
