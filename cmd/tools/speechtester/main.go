package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/logging"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	"github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/session"
	"github.com/zhouzirui/mindmate/backend/internal/service/speech"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "tts", "测试模式: tts 或 turn")
	text := flag.String("text", "", "输入文本 (tts: 待合成文本; turn: 用户消息)")
	outputPath := flag.String("out", "", "音频输出路径 (默认根据格式自动生成)")
	language := flag.String("lang", "", "语言代码 en/hi，留空则根据文本识别")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -text 提供输入文本")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "tts":
		if !cfg.Speech.Enabled {
			log.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
		}
		runTTS(ctx, speech.NewService(cfg.Speech.Model(), logger), *text, *language, *outputPath)
	case "turn":
		runTurn(ctx, cfg, logger, *text, *outputPath)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=tts 或 -mode=turn 指定测试模式")
	}
}

func runTTS(ctx context.Context, svc *speech.Service, text, language, outputPath string) {
	log.Printf("开始进行 TTS 测试: lang=%q voice=%s", language, svc.VoiceFor(speech.DetectLanguage(text)))

	resp, err := svc.Synthesize(ctx, speech.Input{Text: text, LanguageHint: language, Tone: emotion.Analyze("", text)})
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	outputPath = writeAudio(outputPath, resp.Format, resp.AudioData)
	log.Printf("TTS 合成成功: 输出文件 %s, 语言=%s 音色=%s 大小=%d 字节", outputPath, resp.Language, resp.Voice, len(resp.AudioData))
}

// runTurn 在内存存储上跑一轮完整对话，便于联调模型与语音配置
func runTurn(ctx context.Context, cfg *config.Config, logger *zap.Logger, text, outputPath string) {
	generator, err := ai.New(ctx, cfg.AI, persona.Companion(), logger)
	if err != nil {
		log.Fatalf("AI 初始化失败: %v", err)
	}

	st := store.NewMemoryStore()
	opts := []chat.Option{chat.WithReplyTimeout(cfg.AI.ReplyTimeout)}
	if cfg.Speech.Enabled {
		opts = append(opts, chat.WithSynthesizer(speech.NewService(cfg.Speech.Model(), logger)))
	}
	svc := chat.NewService(st, session.NewService(st, logger), generator, logger, opts...)

	result, err := svc.Turn(ctx, "speechtester", chat.TurnInput{Message: text, WantSpeech: cfg.Speech.Enabled})
	if err != nil {
		log.Fatalf("对话失败: %v", err)
	}

	log.Printf("回复: %s", result.Reply)
	log.Printf("情感: score=%.2f label=%s", result.Sentiment.Score, result.Sentiment.Label)
	if result.Speech == nil {
		log.Println("未生成语音")
		return
	}
	log.Printf("语音: format=%s base64 长度=%d", result.Speech.Format, len(result.Speech.Data))
	if outputPath != "" {
		audio, err := base64.StdEncoding.DecodeString(result.Speech.Data)
		if err != nil {
			log.Fatalf("语音解码失败: %v", err)
		}
		log.Printf("语音已写入 %s", writeAudio(outputPath, result.Speech.Format, audio))
	}
}

func writeAudio(outputPath, format string, data []byte) string {
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}
	return outputPath
}
