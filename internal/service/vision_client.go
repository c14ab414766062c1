package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultVisionBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// 依權限清單只嘗試這幾種模型
var defaultVisionModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-3-flash",
}

const (
	// AnalyzeModeIdentity 銘牌辨識：廠牌/型號/序號
	AnalyzeModeIdentity = "identity"
	// AnalyzeModeReading 儀表讀值辨識：數值/單位
	AnalyzeModeReading = "reading"
)

// VisionError 辨識失敗的結構化錯誤，序列化後原樣回給擷取畫面。
// 辨識失敗不阻斷流程，前端永遠保有手動輸入路徑。
type VisionError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *VisionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// VisionClient 影像辨識客戶端。兩層式輪替：外層換 Key、內層換模型，
// 任一組合成功即回傳，全部失敗視為額度用盡。
type VisionClient struct {
	httpClient *resty.Client
	keys       []string
	models     []string
	logger     *zap.Logger
}

func NewVisionClient(baseURL string, keys, models []string, logger *zap.Logger) *VisionClient {
	if baseURL == "" {
		baseURL = defaultVisionBaseURL
	}
	if len(models) == 0 {
		models = defaultVisionModels
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &VisionClient{
		httpClient: client,
		keys:       keys,
		models:     models,
		logger:     logger,
	}
}

// Enabled 未設定任何 Key 時辨識端點回報 server_error
func (c *VisionClient) Enabled() bool {
	return len(c.keys) > 0
}

type visionRequest struct {
	Contents []visionContent `json:"contents"`
}

type visionContent struct {
	Parts []visionPart `json:"parts"`
}

type visionPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *visionBlobPart `json:"inline_data,omitempty"`
}

type visionBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze 辨識一張照片並回傳模型輸出的 JSON 物件。
// imageBase64 可帶 data URL 前綴；kind 只在讀值模式下用於提示詞。
func (c *VisionClient) Analyze(ctx context.Context, imageBase64, mode, kind string) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, &VisionError{Code: "server_error", Message: "辨識服務未設定 API Key"}
	}

	encoded := imageBase64
	if i := strings.Index(encoded, ","); i >= 0 {
		encoded = encoded[i+1:]
	}

	var prompt string
	if mode == AnalyzeModeIdentity {
		prompt = `Identify device nameplate: brand (maker), model (model), serial number (serial_number). Return JSON: {"maker": "...", "model": "...", "serial_number": "..."}. No markdown.`
	} else {
		prompt = fmt.Sprintf(`Identify value and unit for this %s instrument. Return JSON: {"value": "...", "unit": "..."}. No markdown.`, kind)
	}

	body := visionRequest{Contents: []visionContent{{Parts: []visionPart{
		{Text: prompt},
		{InlineData: &visionBlobPart{MimeType: "image/jpeg", Data: encoded}},
	}}}}

	var lastErr string
	for _, key := range c.keys {
		for _, model := range c.models {
			text, err := c.generate(ctx, key, model, body)
			if err != nil {
				lastErr = err.Error()
				c.logger.Debug("vision attempt failed",
					zap.String("model", model),
					zap.Error(err))
				continue
			}
			return parseModelJSON(text)
		}
	}

	c.logger.Warn("all vision keys and models exhausted", zap.String("last_error", lastErr))
	return nil, &VisionError{Code: "quota_exceeded", Message: "全部 API Key 的額度皆已用盡，請稍後再試或更換 Key。"}
}

func (c *VisionClient) generate(ctx context.Context, key, model string, body visionRequest) (string, error) {
	var out visionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("vision api status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vision api returned no candidates")
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}

// parseModelJSON 容忍模型包 markdown 圍欄的輸出
func parseModelJSON(text string) (json.RawMessage, error) {
	if strings.Contains(text, "```") {
		parts := strings.Split(text, "```")
		if len(parts) > 1 {
			text = parts[1]
			text = strings.TrimPrefix(text, "json")
		}
	}
	text = strings.TrimSpace(text)
	if !json.Valid([]byte(text)) {
		return nil, &VisionError{Code: "parse_error", Message: "辨識結果內容解析失敗"}
	}
	return json.RawMessage(text), nil
}
