// Package server は、制御APIとMJPEGストリーミングの2つのHTTPサーバーを管理します。
//
// このパッケージは、2つのリスナーの起動とルーティング、
// 各エンドポイントの処理、ストリーミング配信を担当します。
//
// 責務:
//   - 制御APIサーバー（/ /capture /status /control /sensors）の提供
//   - ストリーミングサーバー（/stream /ws、制御ポート+1）の提供
//   - multipart/x-mixed-replace 形式でのフレーム配信
//   - クライアント切断・取得失敗・エンコード失敗時のストリーム終了処理
//   - グレースフルシャットダウン
//
// 仕様:
//   - ルーティングとハンドラはgin-gonic/ginを使用
//   - WebSocket配信はgorilla/websocketを使用
//   - 全レスポンスにCORSヘッダーを付与
//   - ストリーミングはフレームソースのチェックアウト方式により
//     複数接続間で直列化される
package server
