package bot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/metrics"
)

// Generator 产出机器人回复文本。onPartial 在最终文本敲定前可能被调用
// 零次或多次，参数是截至当前的累计文本。实现绝不返回错误：任何失败
// 都在内部降级为 persona 的兜底台词。
type Generator interface {
	Generate(ctx context.Context, p Persona, message, roomContext string, onPartial func(string)) string
}

// CohereGenerator 调用 Cohere generate 接口（流式）。启动时缺少凭据则
// 视为后端永久不可用，所有请求直接走兜底，而不是每次调用时报错。
type CohereGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewCohereGenerator(apiKey, baseURL string, timeout time.Duration) *CohereGenerator {
	if apiKey == "" {
		log.Warn().Msg("cohere api key missing, generator permanently unavailable")
	}
	return &CohereGenerator{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// streamChunk 是流式响应里的一行：若干带 text 的增量块，
// 以 is_finished 块收尾。
type streamChunk struct {
	Text       string `json:"text"`
	IsFinished bool   `json:"is_finished"`
}

func (g *CohereGenerator) Generate(ctx context.Context, p Persona, message, roomContext string, onPartial func(string)) string {
	if g.apiKey == "" {
		return fallback(p)
	}
	if roomContext == "" {
		roomContext = "général"
	}

	prompt := strings.ReplaceAll(p.Prompt, "{context}", roomContext)
	prompt += "\nMessage: " + message + "\nContext: " + roomContext

	body, err := json.Marshal(generateRequest{
		Model:       "command",
		Prompt:      prompt,
		MaxTokens:   100,
		Temperature: 0.8,
		Stream:      true,
	})
	if err != nil {
		return fallback(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return fallback(p)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("bot", p.ID).Msg("generate request")
		return fallback(p)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("bot", p.ID).Msg("generate status")
		return fallback(p)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			log.Warn().Err(err).Str("bot", p.ID).Msg("generate malformed chunk")
			return fallback(p)
		}
		if chunk.IsFinished {
			break
		}
		sb.WriteString(chunk.Text)
		if onPartial != nil {
			onPartial(sb.String())
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("bot", p.ID).Msg("generate stream")
		return fallback(p)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return fallback(p)
	}
	return text
}

// fallback 从 persona 的固定台词集中等概率取一条。
func fallback(p Persona) string {
	metrics.GeneratorFallbacksTotal.WithLabelValues(p.ID).Inc()
	return p.Fallbacks[rand.Intn(len(p.Fallbacks))]
}
