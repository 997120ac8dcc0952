package utils

import (
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"
)

// AddMetadata はセグメントにメタデータを追加します。segがnilの場合は何もしません
func AddMetadata(seg *xray.Segment, key string, value interface{}) {
	if seg == nil {
		return
	}
	if err := seg.AddMetadata(key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to add X-Ray metadata")
	}
}

// CloseSegment はエラーを記録してセグメントを閉じます。segがnilの場合は何もしません
func CloseSegment(seg *xray.Segment, err error) {
	if seg == nil {
		return
	}
	seg.Close(err)
}

// ConfigureTracing はX-Rayデーモンへの送信を設定します
// デーモンの設定に失敗した場合はデフォルト設定にフォールバックします
func ConfigureTracing(version string) error {
	if err := xray.Configure(xray.Config{
		DaemonAddr:     "127.0.0.1:2000",
		ServiceVersion: version,
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to configure X-Ray, falling back to defaults")
		if configErr := xray.Configure(xray.Config{}); configErr != nil {
			return configErr
		}
	}
	return os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
}
