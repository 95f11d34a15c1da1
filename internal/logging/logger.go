package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// Init 配置全局 logger，level 为空时使用 info。
func Init(level string) {
	l := base()
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
}

// Logger 返回进程级 logger。
func Logger() *logrus.Logger {
	return base()
}

// For 返回带 component 字段的 entry，替代 "[component]" 前缀式日志。
func For(component string) *logrus.Entry {
	return base().WithField("component", component)
}

func base() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	})
	return logger
}
