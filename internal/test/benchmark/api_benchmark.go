// Package benchmark 对运行中的服务做并发压测
package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// APIBenchmark 定义API基准测试结构
type APIBenchmark struct {
	BaseURL     string
	Concurrency int
	Requests    int
	AuthToken   string
	Client      *http.Client
}

// BenchmarkResult 定义基准测试结果
type BenchmarkResult struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	MinTime        time.Duration `json:"min_time"`
	MaxTime        time.Duration `json:"max_time"`
	P95Time        time.Duration `json:"p95_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

// SuccessRate 成功率（百分比）
func (r *BenchmarkResult) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalRequests) * 100
}

type requestResult struct {
	duration   time.Duration
	statusCode int
	err        error
}

// NewAPIBenchmark 创建新的API基准测试实例
func NewAPIBenchmark(baseURL string, concurrency, requests int, authToken string) *APIBenchmark {
	if concurrency < 1 {
		concurrency = 1
	}
	return &APIBenchmark{
		BaseURL:     baseURL,
		Concurrency: concurrency,
		Requests:    requests,
		AuthToken:   authToken,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RunGET 执行GET请求的基准测试
func (b *APIBenchmark) RunGET(ctx context.Context, path string) *BenchmarkResult {
	return b.run(ctx, http.MethodGet, path, nil)
}

// RunPOST 执行POST请求的基准测试
func (b *APIBenchmark) RunPOST(ctx context.Context, path string, payload interface{}) *BenchmarkResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return &BenchmarkResult{
			URL:    b.BaseURL + path,
			Method: http.MethodPost,
			Errors: []string{fmt.Sprintf("JSON编码错误: %v", err)},
		}
	}
	return b.run(ctx, http.MethodPost, path, data)
}

func (b *APIBenchmark) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.AuthToken)
	}
	return req, nil
}

// run 用 Concurrency 个工作协程发送 Requests 个请求并汇总结果
func (b *APIBenchmark) run(ctx context.Context, method, path string, payload []byte) *BenchmarkResult {
	jobs := make(chan struct{})
	results := make(chan requestResult, b.Requests)
	var wg sync.WaitGroup

	startTime := time.Now()
	for w := 0; w < b.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				results <- b.once(ctx, method, path, payload)
			}
		}()
	}
	for i := 0; i < b.Requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	close(results)
	totalElapsed := time.Since(startTime)

	result := &BenchmarkResult{
		URL:           b.BaseURL + path,
		Method:        method,
		Concurrency:   b.Concurrency,
		TotalRequests: b.Requests,
		TotalTime:     totalElapsed,
		StatusCodes:   make(map[int]int),
	}

	var durations []time.Duration
	var total time.Duration
	for r := range results {
		if r.err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, r.err.Error())
			continue
		}
		durations = append(durations, r.duration)
		total += r.duration
		result.StatusCodes[r.statusCode]++
		if r.statusCode >= 200 && r.statusCode < 300 {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		result.MinTime = durations[0]
		result.MaxTime = durations[len(durations)-1]
		result.P95Time = durations[(len(durations)*95+99)/100-1]
		result.AverageTime = total / time.Duration(len(durations))
	}
	if totalElapsed > 0 {
		result.RequestsPerSec = float64(b.Requests) / totalElapsed.Seconds()
	}
	return result
}

func (b *APIBenchmark) once(ctx context.Context, method, path string, payload []byte) requestResult {
	req, err := b.newRequest(ctx, method, path, payload)
	if err != nil {
		return requestResult{err: err}
	}

	start := time.Now()
	resp, err := b.Client.Do(req)
	if err != nil {
		return requestResult{err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return requestResult{
		duration:   time.Since(start),
		statusCode: resp.StatusCode,
	}
}

// PrintResult 打印基准测试结果
func (r *BenchmarkResult) PrintResult() {
	fmt.Printf("基准测试结果: %s %s\n", r.Method, r.URL)
	fmt.Printf("并发数: %d 总请求数: %d 成功: %d 失败: %d (成功率 %.2f%%)\n",
		r.Concurrency, r.TotalRequests, r.SuccessCount, r.FailureCount, r.SuccessRate())
	fmt.Printf("总耗时: %s 平均: %s 最小: %s 最大: %s P95: %s\n",
		r.TotalTime, r.AverageTime, r.MinTime, r.MaxTime, r.P95Time)
	fmt.Printf("每秒请求数: %.2f\n", r.RequestsPerSec)
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, r.StatusCodes[code])
	}
	if len(r.Errors) > 0 {
		fmt.Printf("错误信息 (最多显示5个):\n")
		for i, err := range r.Errors {
			if i >= 5 {
				fmt.Printf("  ... 还有 %d 个错误\n", len(r.Errors)-5)
				break
			}
			fmt.Printf("  %s\n", err)
		}
	}
}
