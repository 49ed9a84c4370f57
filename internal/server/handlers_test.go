package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"midorime/internal/actuator"
	"midorime/internal/camera"
	"midorime/internal/sensors"
)

// newTestHandler はシミュレーションソースを使ったテスト用Handlerを作成する
func newTestHandler(t *testing.T, opts camera.Options) (*Handler, *camera.SimSource, *actuator.Nop) {
	t.Helper()

	src := camera.NewSim(opts)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("ソースの開始に失敗しました: %v", err)
	}

	flash := &actuator.Nop{}
	handler := NewHandler(src, src, camera.JPEGEncoder{}, sensors.SimReader{}, flash)
	return handler, src, flash
}

func controlGet(t *testing.T, handler *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	engine := buildControlEngine(handler)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

// TestIndex はHTMLページの配信をテストする
func TestIndex(t *testing.T) {
	handler, _, _ := newTestHandler(t, camera.Options{})

	w := controlGet(t, handler, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Typeが一致しません: got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "Midorime") {
		t.Error("ページ内容が期待と異なります")
	}
}

// TestStatusIdempotent は /status の冪等性をテストする
func TestStatusIdempotent(t *testing.T) {
	handler, _, _ := newTestHandler(t, camera.Options{
		Params: camera.Params{FrameSize: 8, Quality: 10},
	})

	first := controlGet(t, handler, "/status")
	if first.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", first.Code, http.StatusOK)
	}

	want := `{"framesize":8,"quality":10,"brightness":0,"contrast":0,` +
		`"temperature":23.5,"humidity":48.2,"soilMoisture":512}`
	if got := first.Body.String(); got != want {
		t.Errorf("ステータスが一致しません:\ngot  %s\nwant %s", got, want)
	}

	// 変更なしの繰り返し呼び出しは同一のJSONを返すこと
	second := controlGet(t, handler, "/status")
	if first.Body.String() != second.Body.String() {
		t.Errorf("ステータスが変化しました:\n1回目 %s\n2回目 %s",
			first.Body.String(), second.Body.String())
	}
}

// TestControlThenStatus はコントロール変更がステータスへ反映されることをテストする
func TestControlThenStatus(t *testing.T) {
	handler, _, _ := newTestHandler(t, camera.Options{
		Params: camera.Params{FrameSize: 8, Quality: 10},
	})

	w := controlGet(t, handler, "/control?var=quality&val=20")
	if w.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	status := controlGet(t, handler, "/status")
	if !strings.Contains(status.Body.String(), `"quality":20`) {
		t.Errorf("品質がステータスへ反映されていません: %s", status.Body.String())
	}
}

// TestControlValidation はコントロールの入力検証をテストする
func TestControlValidation(t *testing.T) {
	testCases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"パラメータなし", "/control", http.StatusNotFound},
		{"valなし", "/control?var=quality", http.StatusNotFound},
		{"varなし", "/control?val=10", http.StatusNotFound},
		{"整数でないval", "/control?var=quality&val=abc", http.StatusNotFound},
		{"未知のvar", "/control?var=bogus&val=1", http.StatusNotFound},
		{"品質範囲外", "/control?var=quality&val=100", http.StatusInternalServerError},
		{"明度範囲外", "/control?var=brightness&val=5", http.StatusInternalServerError},
		{"コントラスト範囲外", "/control?var=contrast&val=-5", http.StatusInternalServerError},
		{"フレームサイズ範囲外", "/control?var=framesize&val=99", http.StatusInternalServerError},
		{"フラッシュ範囲外", "/control?var=flash&val=300", http.StatusInternalServerError},
		{"正常な明度", "/control?var=brightness&val=1", http.StatusOK},
		{"正常なフレームサイズ", "/control?var=framesize&val=5", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _, _ := newTestHandler(t, camera.Options{
				Params: camera.Params{FrameSize: 8, Quality: 10},
			})
			w := controlGet(t, handler, tc.path)
			if w.Code != tc.wantStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

// TestControlFlash はフラッシュ制御をテストする
func TestControlFlash(t *testing.T) {
	handler, _, flash := newTestHandler(t, camera.Options{})

	w := controlGet(t, handler, "/control?var=flash&val=128")
	if w.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if flash.Last() != 128 {
		t.Errorf("フラッシュ輝度が一致しません: got %d, want 128", flash.Last())
	}
}

// TestControlFrameSizeRawSource は生フレーム出力時のフレームサイズ変更をテストする
// JPEG出力でない場合、フレームサイズ変更は適用されない
func TestControlFrameSizeRawSource(t *testing.T) {
	handler, src, _ := newTestHandler(t, camera.Options{
		SimFormat: camera.FormatRGB24,
		Params:    camera.Params{FrameSize: 8},
	})

	w := controlGet(t, handler, "/control?var=framesize&val=5")
	if w.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := src.Get().FrameSize; got != 8 {
		t.Errorf("フレームサイズが変更されました: got %d, want 8", got)
	}
}

// TestCapture は単発キャプチャをテストする
func TestCapture(t *testing.T) {
	for _, format := range []camera.Format{camera.FormatJPEG, camera.FormatRGB24} {
		t.Run(string(format), func(t *testing.T) {
			handler, src, _ := newTestHandler(t, camera.Options{
				SimFormat: format,
				Params:    camera.Params{FrameSize: 1, Quality: 10},
			})

			w := controlGet(t, handler, "/capture")
			if w.Code != http.StatusOK {
				t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("Content-Typeが一致しません: got %s", ct)
			}
			if cd := w.Header().Get("Content-Disposition"); cd != "inline; filename=capture.jpg" {
				t.Errorf("Content-Dispositionが一致しません: got %s", cd)
			}
			if body := w.Body.Bytes(); len(body) < 2 || !bytes.HasPrefix(body, []byte{0xFF, 0xD8}) {
				t.Error("レスポンスがJPEGではありません")
			}

			// フレームは必ず返却されていること
			acquired, released := src.Counters()
			if acquired != 1 || released != 1 {
				t.Errorf("フレームの収支が一致しません: acquired=%d released=%d", acquired, released)
			}
		})
	}
}

// TestCaptureFailure はキャプチャ失敗時の応答をテストする
func TestCaptureFailure(t *testing.T) {
	handler, src, _ := newTestHandler(t, camera.Options{})
	src.SetAcquireError(errors.New("故障注入"))

	w := controlGet(t, handler, "/capture")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("予期しないステータスコード: got %d, want %d",
			w.Code, http.StatusInternalServerError)
	}

	// 取得されなかったフレームに対して返却が発生していないこと
	acquired, released := src.Counters()
	if acquired != 0 || released != 0 {
		t.Errorf("フレームの収支が一致しません: acquired=%d released=%d", acquired, released)
	}
}

// TestSensors はセンサーエンドポイントをテストする
func TestSensors(t *testing.T) {
	handler, _, _ := newTestHandler(t, camera.Options{})

	w := controlGet(t, handler, "/sensors")
	if w.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Controlが一致しません: got %s", cc)
	}

	want := `{"temperature":23.5,"humidity":48.2,"soilMoisture":512}`
	if got := w.Body.String(); got != want {
		t.Errorf("センサー値が一致しません:\ngot  %s\nwant %s", got, want)
	}
}

// TestCORSHeader は全エンドポイントでCORSヘッダーが付与されることをテストする
func TestCORSHeader(t *testing.T) {
	handler, _, _ := newTestHandler(t, camera.Options{})

	paths := []string{"/", "/capture", "/status", "/sensors", "/control"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := controlGet(t, handler, path)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("CORSヘッダーが一致しません: got %q, want %q", got, "*")
			}
		})
	}
}
