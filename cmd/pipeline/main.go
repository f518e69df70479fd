package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/features"
	"chainanalytics/internal/model"
	"chainanalytics/internal/pipeline"
	"chainanalytics/internal/store"
)

func main() {
	ambientPath := flag.String("config", "./config.yaml", "ambient config file")
	detectorPath := flag.String("detector-config", "./detectors.json", "detector threshold config file")
	network := flag.String("network", "ethereum", "network to run the pipeline for")
	windowDays := flag.Int64("window-days", 7, "window length in days")
	processingDate := flag.String("processing-date", "", "processing date, YYYY-MM-DD (default: today UTC)")
	flag.Parse()

	date := *processingDate
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	log.Printf("[pipeline] starting network=%s window_days=%d processing_date=%s", *network, *windowDays, date)

	ambient, err := config.LoadAmbient(*ambientPath)
	if err != nil {
		log.Fatalf("[pipeline] load ambient config: %v", err)
	}

	detectorCfg, err := config.LoadDetectorConfig(*detectorPath, ambient.DetectorConfig.FallbackURL)
	if err != nil {
		log.Fatalf("[pipeline] load detector config: %v", err)
	}

	gw, err := store.Open(store.Options{
		Driver:       ambient.Database.Driver,
		DSN:          ambient.Database.DSN,
		Automigrate:  ambient.Database.Automigrate,
		MaxOpenConns: ambient.Database.MaxOpenConns,
		MaxIdleConns: ambient.Database.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("[pipeline] open storage gateway: %v", err)
	}
	defer gw.Close()

	var redisClient *redis.Client
	if ambient.Redis.Enable {
		redisClient = redis.NewClient(&redis.Options{
			Addr: ambient.Redis.Addr, Password: ambient.Redis.Password, DB: ambient.Redis.DB,
		})
		defer redisClient.Close()
	}

	ctx := context.Background()
	labelLoader := store.NewLabelCacheLoader(gw, redisClient, 30*time.Minute)
	labels, err := labelLoader.Load(ctx, *network)
	if err != nil {
		log.Fatalf("[pipeline] load label cache: %v", err)
	}

	thresholds := features.Thresholds{SmallTxUSD: decimal.NewFromInt(100), ChunkSize: 500}
	orch := pipeline.New(gw, detectorCfg, labels, thresholds)

	now := time.Now().UTC()
	window := model.Window{
		Start: now.AddDate(0, 0, -int(*windowDays)).UnixMilli(),
		End:   now.UnixMilli(),
	}

	if err := orch.Run(ctx, *network, window, date, nil); err != nil {
		log.Fatalf("[pipeline] run failed: %v", err)
	}
	log.Printf("[pipeline] run complete network=%s processing_date=%s", *network, date)
}
