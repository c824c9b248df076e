package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"silverbot-chat-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// maxLogEntries はメモリに保持するリクエストログの上限
const maxLogEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はリクエストログとインテント別件数を集計します。
type MonitoringService struct {
	mu      sync.RWMutex
	logs    []LogEntry
	intents map[models.Intent]int
	now     func() time.Time
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs:    make([]LogEntry, 0),
		intents: make(map[models.Intent]int),
		now:     time.Now,
	}
}

// LogRequest はリクエストを記録します。古いログから捨てる。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - maxLogEntries; over > 0 {
		s.logs = append(s.logs[:0:0], s.logs[over:]...)
	}
}

// RecordIntent はインテントの件数を1増やします。
func (s *MonitoringService) RecordIntent(intent models.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent]++
}

// IntentCounts はインテント別件数のスナップショットを返します。
func (s *MonitoringService) IntentCounts() map[models.Intent]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.Intent]int, len(s.intents))
	for k, v := range s.intents {
		out[k] = v
	}
	return out
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		// 管理系のパスは集計しない
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
		})
	}
}

// HourlyCount は1時間ごとのリクエスト数です。
type HourlyCount struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// EndpointLatency はパスごとの平均応答時間（ミリ秒）です。
type EndpointLatency struct {
	Endpoint     string `json:"endpoint"`
	ResponseTime int64  `json:"responseTime"`
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []HourlyCount         `json:"requestsOverTime"`
	Endpoints        map[string]int        `json:"endpoints"`
	StatusCodes      map[string]int        `json:"statusCodes"`
	AvgResponseTimes []EndpointLatency     `json:"avgResponseTimes"`
	Intents          map[models.Intent]int `json:"intents"`
	RecentErrors     []LogEntry            `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します（UTC）。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}
	intents := s.IntentCounts()

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 過去から現在の順に時間バケットを作る
	overTime := make([]HourlyCount, periodHours)
	index := make(map[time.Time]int, periodHours)
	for i := 0; i < periodHours; i++ {
		bucket := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour)
		overTime[i] = HourlyCount{Time: bucket.Format("15:00")}
		index[bucket] = i
	}

	endpoints := make(map[string]int)
	statusCodes := map[string]int{
		"2xx Success":      0,
		"4xx Client Error": 0,
		"5xx Server Error": 0,
	}
	latencySum := make(map[string]time.Duration)
	recentErrors := make([]LogEntry, 0)

	for _, entry := range filtered {
		if i, ok := index[entry.Timestamp.UTC().Truncate(time.Hour)]; ok {
			overTime[i].Requests++
		}
		endpoints[entry.Path]++
		latencySum[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 500:
			statusCodes["5xx Server Error"]++
		case entry.StatusCode >= 400:
			statusCodes["4xx Client Error"]++
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx Success"]++
		}
	}

	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	latencies := make([]EndpointLatency, 0, len(latencySum))
	for path, total := range latencySum {
		latencies = append(latencies, EndpointLatency{
			Endpoint:     path,
			ResponseTime: total.Milliseconds() / int64(endpoints[path]),
		})
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i].Endpoint < latencies[j].Endpoint })

	return DashboardData{
		RequestsOverTime: overTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: latencies,
		Intents:          intents,
		RecentErrors:     recentErrors,
	}
}
