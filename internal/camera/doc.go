// Package camera カメラハードウェアからのフレーム取得を担う
//
// # 責務
// - フレームの貸し出し（チェックアウト）と返却の管理
// - カメラパラメータ（フレームサイズ・品質・明度・コントラスト）の制御
// - 生フレームのJPEGエンコード
// - 複数のフレームソース実装（V4L2 / ffmpeg / シミュレーション）
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - カメラから1フレームずつ画像を取得したい
// - ストリーミングと単発キャプチャで同一デバイスを共有したい
// - 実デバイスなしで動作確認やテストを行いたい
//
// # 仕様
// - Acquire で取得したフレームは必ず Release で返却する
// - ソースは同時に1フレームしか貸し出さない（チェックアウト方式）
// - 貸し出し中の Acquire は返却までブロックする
// - パラメータ設定は非トランザクショナルで、範囲外の値はセンサー準拠の
//   検証で拒否される
//
// # 前提要件（実デバイス使用時）
//   - V4L2対応カメラデバイス（/dev/video*）
//   - ffmpeg ソース使用時: ffmpeg, v4l-utils
//     Ubuntu/Debian: sudo apt install ffmpeg v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
