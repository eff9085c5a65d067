package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// 定义不同级别的日志记录器
	InfoLogger    *log.Logger
	WarningLogger *log.Logger
	ErrorLogger   *log.Logger

	logFile *os.File
	mu      sync.Mutex
)

// 未调用 SetupLogger 之前（测试、客户端SDK）默认输出到标准错误
func init() {
	setWriter(os.Stderr)
}

func setWriter(w io.Writer) {
	InfoLogger = log.New(w, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLogger = log.New(w, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(w, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// SetupLogger 初始化日志配置，同时输出到控制台和 logs/YYYY-MM-DD.log
func SetupLogger() error {
	return SetupLoggerWithDir("logs")
}

// SetupLoggerWithDir 使用指定目录初始化日志
func SetupLoggerWithDir(logDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %v", err)
	}

	logFileName := filepath.Join(logDir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %v", err)
	}

	if logFile != nil {
		logFile.Close()
	}
	logFile = f

	setWriter(io.MultiWriter(os.Stdout, f))
	return nil
}

// SetOutput 替换所有级别的输出目标
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setWriter(w)
}

// Close 关闭日志文件
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	setWriter(os.Stderr)
	return err
}

// Info 记录信息级别的日志
func Info(format string, v ...interface{}) {
	InfoLogger.Output(2, fmt.Sprintf(format, v...))
}

// Warning 记录警告级别的日志
func Warning(format string, v ...interface{}) {
	WarningLogger.Output(2, fmt.Sprintf(format, v...))
}

// Error 记录错误级别的日志
func Error(format string, v ...interface{}) {
	ErrorLogger.Output(2, fmt.Sprintf(format, v...))
}
