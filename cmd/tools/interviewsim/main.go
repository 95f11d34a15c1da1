package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/analysis/expression"
	"github.com/Dhvanitmonpara/interview.ai/internal/client"
	"github.com/Dhvanitmonpara/interview.ai/internal/config"
	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/event"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/transcript"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.For("sim").WithError(err).Debug("无法加载 .env，改用系统环境变量")
	}

	url := flag.String("url", envOrDefault("INTERVIEW_CHANNEL_URL", "ws://localhost:8080/api/v1/channel"), "事件通道地址")
	name := flag.String("name", "Alice", "候选人姓名")
	years := flag.Int("years", 3, "工作年限")
	jobRole := flag.String("role", "front-end", "岗位 ID 或名称")
	skills := flag.String("skills", "react,typescript", "逗号分隔的技能列表")
	userID := flag.String("user", "", "用户 ID，用于查询历史会话")
	answerDelay := flag.Duration("answer-delay", 3*time.Second, "每题作答时间，0 表示等待倒计时结束")
	speechInterval := flag.Duration("speech-interval", 700*time.Millisecond, "模拟语音识别的输出间隔")
	camera := flag.Bool("camera", true, "是否启用模拟摄像头")
	timeout := flag.Duration("timeout", 30*time.Minute, "整场面试超时时间")
	level := flag.String("log-level", "info", "日志级别")

	flag.Parse()
	logging.Init(*level)
	log := logging.For("sim")

	appCfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	ch, err := client.Dial(ctx, *url, nil)
	if err != nil {
		log.WithError(err).Fatal("连接事件通道失败")
	}
	defer ch.Close()

	cfg := client.Config{
		Candidate: interview.Candidate{
			Name:              *name,
			YearsOfExperience: *years,
			JobRole:           *jobRole,
			Skills:            strings.Split(*skills, ","),
			UserID:            *userID,
		},
		Recognizer:     &scriptedRecognizer{interval: *speechInterval},
		Camera:         expression.NoCamera{},
		SampleInterval: appCfg.Interview.SampleInterval,
	}
	if *camera {
		cfg.Camera = syntheticCamera{}
	}

	var ctrl *client.Controller
	cfg.OnQuestion = func(q event.Question) {
		log.WithFields(logrus.Fields{
			"index":      q.Index,
			"round":      q.Round,
			"time_limit": q.TimeLimit,
			"last":       q.Last,
		}).Info(q.Question)
		if *answerDelay > 0 {
			time.AfterFunc(*answerDelay, ctrl.Next)
		}
	}
	ctrl = client.NewController(ch, cfg)

	res, err := ctrl.Run(ctx)
	if err != nil {
		log.WithError(err).Fatal("面试未正常结束")
	}

	log.WithFields(logrus.Fields{
		"connection": res.ConnectionID,
		"answered":   res.Answered,
		"analytics":  res.AnalyticsPublished,
		"failures":   len(res.Failures),
	}).Info("面试结束")
}

// scriptedRecognizer 按固定间隔输出预设语句，代替浏览器语音识别。
type scriptedRecognizer struct {
	interval time.Duration
}

var phrases = []string{
	"I would start by clarifying the requirements",
	"then sketch the main components",
	"and walk through the data flow",
	"the trade-off here is latency versus consistency",
	"I would measure it before optimising",
}

func (r *scriptedRecognizer) Listen(ctx context.Context, onText func(string)) error {
	if r.interval <= 0 {
		return transcript.ErrUnsupported
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			onText(phrases[i%len(phrases)])
		}
	}
}

// syntheticCamera 生成随机表情分数，偶尔模拟画面中没有人脸。
type syntheticCamera struct{}

func (syntheticCamera) Open(context.Context) (expression.FrameSource, error) {
	return &syntheticFrames{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

type syntheticFrames struct {
	rng *rand.Rand
}

func (f *syntheticFrames) Detect(context.Context) (expression.Scores, bool, error) {
	if f.rng.Float64() < 0.05 {
		return expression.Scores{}, false, nil
	}
	return expression.Scores{
		Neutral:   f.rng.Float64(),
		Happy:     f.rng.Float64() * 0.6,
		Sad:       f.rng.Float64() * 0.3,
		Angry:     f.rng.Float64() * 0.2,
		Fearful:   f.rng.Float64() * 0.5,
		Disgusted: f.rng.Float64() * 0.1,
		Surprised: f.rng.Float64() * 0.4,
	}, true, nil
}

func (f *syntheticFrames) Close() error {
	logging.For("sim").Debug("camera released")
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
