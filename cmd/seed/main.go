package main

import (
	"time"

	"github.com/location-resolver/internal/bootstrap"
	"github.com/location-resolver/internal/fallback"
	"github.com/location-resolver/internal/remote"
	"github.com/meilisearch/meilisearch-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	if err := bootstrap.LoadConfig("config/resolver.yaml"); err != nil {
		panic(err)
	}

	logger := bootstrap.InitLogger()
	defer logger.Sync()

	// Meilisearch connection
	meiliClient := meilisearch.New(viper.GetString("meilisearch.url"), meilisearch.WithAPIKey(viper.GetString("meilisearch.master_key")))

	health, err := meiliClient.Health()
	if err != nil {
		logger.Fatal("Không thể kết nối Meilisearch", zap.Error(err))
	}
	logger.Info("Meilisearch status", zap.String("status", health.Status))

	indexName := viper.GetString("meilisearch.index")
	index := meiliClient.Index(indexName)

	// Set index settings
	logger.Info("Đang cấu hình Meilisearch index settings...", zap.String("index", indexName))
	task, err := index.UpdateSettings(remote.IndexSettings())
	if err != nil {
		logger.Fatal("Lỗi cập nhật settings", zap.Error(err))
	}
	waitTask(meiliClient, task.TaskUID, logger)

	// Flatten fallback dataset
	dataset, err := fallback.Load()
	if err != nil {
		logger.Fatal("Lỗi load fallback dataset", zap.Error(err))
	}
	records := dataset.Records()
	docs := make([]remote.IndexDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, remote.NewIndexDocument(r.Level, r.Code, r.Name, r.CountryCode, r.StateCode, r.CityName))
	}

	logger.Info("Đang seed dữ liệu vào Meilisearch...", zap.Int("documents", len(docs)))
	tasks, err := remote.AddBatches(index, docs, 1000)
	if err != nil {
		logger.Fatal("Lỗi insert batch", zap.Error(err))
	}
	for _, uid := range tasks {
		waitTask(meiliClient, uid, logger)
	}

	logger.Info("Hoàn thành seed", zap.Int("documents", len(docs)), zap.String("region", dataset.Region()))
}

// waitTask chờ task Meilisearch hoàn thành
func waitTask(client meilisearch.ServiceManager, uid int64, logger *zap.Logger) {
	for {
		taskInfo, err := client.GetTask(uid)
		if err != nil {
			logger.Fatal("Lỗi check task status", zap.Int64("task_uid", uid), zap.Error(err))
		}
		if taskInfo.Status == "succeeded" {
			logger.Info("Task thành công", zap.Int64("task_uid", uid))
			return
		} else if taskInfo.Status == "failed" {
			logger.Fatal("Task thất bại", zap.Int64("task_uid", uid), zap.Any("error", taskInfo.Error))
		}
		time.Sleep(1 * time.Second)
	}
}
