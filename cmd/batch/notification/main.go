package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/common/config"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/logging"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/batch"
)

const (
	projectName    = "sbcntr-rendezvous-notification-batch"
	serviceVersion = "1.0.0"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	flag.Parse()

	// 最後の引数として予約バッチの出力(JSON)を受け取る
	if flag.NArg() == 0 {
		log.Fatal().Msg("Notification payload is required")
	}
	payload := flag.Arg(flag.NArg() - 1)

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.EnableTracing {
		if err := utils.ConfigureTracing(serviceVersion); err != nil {
			log.Fatal().Err(err).Msg("Failed to configure default X-Ray settings")
		}
	}

	notifications, err := batch.ParseNotificationPayload([]byte(payload))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate notifications")
	}

	service, err := batch.NewNotificationBatchService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification batch service")
	}
	defer service.Close()
	service.SetArgs(notifications)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, seg := xray.BeginSegment(ctx, projectName)
	defer seg.Close(nil)
	utils.AddMetadata(seg, "notification_count", len(notifications))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	select {
	case sig := <-sigChan:
		log.Warn().Str("signal", sig.String()).Msg("Received signal")
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Batch process failed")
			seg.Close(err)
			os.Exit(1)
		}
		log.Info().Msg("Batch process completed successfully")
	}
}
