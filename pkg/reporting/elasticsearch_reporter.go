package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
	"go.uber.org/zap"
	"sync"
	"time"
)

const SpanIndexName = "span_archive"

const writeQueueSize = 30
const flushTimeout = 10 * time.Second

// ElasticsearchReporter archives kept spans by buffering them and bulk
// indexing once the buffer grows past writeQueueSize. Flushes run off the
// caller's goroutine so span processing is never stalled by the archive.
type ElasticsearchReporter struct {
	es         *elasticsearch.Client
	indexName  string
	writeQueue []model.Span
	logger     *zap.Logger
	mu         sync.Mutex
}

func NewElasticsearchReporter(
	es *elasticsearch.Client,
	indexName string,
	logger *zap.Logger,
) *ElasticsearchReporter {
	return &ElasticsearchReporter{
		es:         es,
		indexName:  indexName,
		writeQueue: []model.Span{},
		logger:     logger,
	}
}

func (er *ElasticsearchReporter) Report(span *model.Span) error {
	er.mu.Lock()
	er.writeQueue = append(er.writeQueue, *span)
	pending := len(er.writeQueue)
	er.mu.Unlock()
	if pending > writeQueueSize {
		go func() {
			err := er.flushToElasticsearch()
			if err != nil {
				er.logger.Error("Failed to flush spans to Elasticsearch", zap.Error(err))
			}
		}()
	}
	return nil
}

func (er *ElasticsearchReporter) Close() error {
	err := er.flushToElasticsearch()
	if err != nil {
		return fmt.Errorf("error flushing remaining spans on close: %w", err)
	}
	return nil
}

func (er *ElasticsearchReporter) flushToElasticsearch() error {
	er.mu.Lock()
	defer er.mu.Unlock()
	if len(er.writeQueue) == 0 {
		return nil
	}
	var buffer bytes.Buffer
	for _, span := range er.writeQueue {
		meta, err := json.Marshal(map[string]interface{}{"index": map[string]string{}})
		if err != nil {
			return fmt.Errorf("error marshaling bulk meta line: %w", err)
		}
		doc, err := json.Marshal(span)
		if err != nil {
			return fmt.Errorf("error marshaling span for bulk indexing: %w", err)
		}
		buffer.Write(meta)
		buffer.WriteByte('\n')
		buffer.Write(doc)
		buffer.WriteByte('\n')
	}

	bulkCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	res, err := er.es.Bulk(
		bytes.NewReader(buffer.Bytes()),
		er.es.Bulk.WithIndex(er.indexName),
		er.es.Bulk.WithContext(bulkCtx),
	)
	if err != nil {
		return fmt.Errorf("error bulk indexing spans to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("error response from Elasticsearch bulk indexing: %s", res.String())
	}
	er.writeQueue = []model.Span{}
	return nil
}
