package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/common/config"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/logging"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/batch"
)

const (
	projectName    = "sbcntr-rendezvous-reservation-batch"
	serviceVersion = "1.0.0"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	flag.Parse()

	// 最後の引数として渡されたタスクトークンを取得
	// ENV=LOCALの場合はタスクトークンを取得しない
	taskToken := "DUMMY_TASK_TOKEN"
	if !config.IsLocal() {
		if flag.NArg() == 0 || flag.Arg(flag.NArg()-1) == "" {
			log.Fatal().Msg("Task token is required")
		}
		taskToken = flag.Arg(flag.NArg() - 1)
	}

	cfg, err := config.LoadConfig(taskToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.EnableTracing {
		if err := utils.ConfigureTracing(serviceVersion); err != nil {
			log.Fatal().Err(err).Msg("Failed to configure default X-Ray settings")
		}
	}

	// Step Functionsクライアントの初期化
	var sfnClient *sfn.Client
	var notifier batch.TaskNotifier
	if !config.IsLocal() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		sfnClient = sfn.NewFromConfig(awsCfg)
		notifier = sfnClient
	}

	service, err := batch.NewReservationBatchService(cfg, notifier)
	if err != nil {
		log.Fatal().Err(utils.GetStackWithError(err)).Msg("Failed to create service")
	}
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// トレース無効時もサブセグメントの親となるセグメントを作成する
	ctx, seg := xray.BeginSegment(ctx, projectName)
	defer seg.Close(nil)
	utils.AddMetadata(seg, "timeout", timeout.String())

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

			// ローカル環境以外の場合のみStep Functionsのエラー通知を行う
			if sfnClient != nil {
				_, sendErr := sfnClient.SendTaskFailure(context.Background(), &sfn.SendTaskFailureInput{
					TaskToken: aws.String(taskToken),
					Error:     aws.String("Batch process failed"),
					Cause:     aws.String(err.Error()),
				})
				if sendErr != nil {
					log.Error().Err(sendErr).Msg("Failed to send task failure")
				}
			}

			seg.Close(err)
			os.Exit(1)
		}
		log.Info().Msg("Batch process completed successfully")
	}
}
