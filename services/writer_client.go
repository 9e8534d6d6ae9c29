package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go_draft_backend/config"
	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
)

// WriterClient 远端生成后端的 HTTP 客户端。鉴权方式与后端约定一致：
// 卡密放在 X-User-ID 头里原样透传。
type WriterClient struct {
	baseURL string
	// 普通请求、慢速规划请求、SSE 长连接各用一个 client，
	// 流式连接不能挂超时，取消靠 ctx。
	client     *http.Client
	planClient *http.Client
	streamer   *http.Client
}

func NewWriterClient(cfg *config.Config) *WriterClient {
	return &WriterClient{
		baseURL:    strings.TrimRight(cfg.WriterBaseURL, "/"),
		client:     &http.Client{Timeout: cfg.WriterTimeout},
		planClient: &http.Client{Timeout: cfg.PlanTimeout},
		streamer:   &http.Client{},
	}
}

func (w *WriterClient) postJSON(ctx context.Context, client *http.Client, path, userID string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	return client.Do(req)
}

// VerifyLogin 卡密校验透传。401 是正常的"无效"信号，不作为错误返回。
func (w *WriterClient) VerifyLogin(ctx context.Context, key string) (bool, error) {
	resp, err := w.postJSON(ctx, w.client, "/verify_login", "", models.LoginReq{Key: key})
	if err != nil {
		return false, err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify_login unexpected status: %d", resp.StatusCode)
	}
	var parsed models.WriterStatusResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.Status == "success", nil
}

// StartGenerate 提交一次生成任务。multipart 字段名是后端的契约。
func (w *WriterClient) StartGenerate(ctx context.Context, userID string, sub *models.GenerateSubmission) error {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	chapterData, err := json.Marshal(sub.Tasks)
	if err != nil {
		return err
	}
	fields := map[string]string{
		"task_id":      sub.TaskID,
		"title":        sub.Title,
		"ref_domestic": sub.RefDomestic,
		"ref_foreign":  sub.RefForeign,
		"custom_data":  sub.CustomData,
		"chapter_data": string(chapterData),
	}
	if sub.InitialContext != "" {
		fields["initial_context"] = sub.InitialContext
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	for _, file := range sub.Files {
		part, err := writer.CreateFormFile("data_files", file.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(file.Content); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/generate", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var parsed models.WriterStatusResp
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
		if parsed.Msg != "" {
			return fmt.Errorf("generate rejected: %s", parsed.Msg)
		}
		return fmt.Errorf("generate unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// OpenStream 打开进度流。调用方负责 Close，断线重连由上层带着
// last_index 再次调用。
func (w *WriterClient) OpenStream(ctx context.Context, userID, taskID string, lastIndex int) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/stream_progress?task_id=%s&last_index=%d",
		w.baseURL, url.QueryEscape(taskID), lastIndex)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := w.streamer.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		closeBody(resp.Body)
		return nil, fmt.Errorf("stream_progress unexpected status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Control 转发暂停/继续/停止
func (w *WriterClient) Control(ctx context.Context, userID, taskID, action string) error {
	payload := map[string]string{"task_id": taskID, "action": action}
	resp, err := w.postJSON(ctx, w.client, "/control", userID, payload)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("control unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// RewriteSection 整段重写/精简。后端偶尔把小节标题又写进正文开头，
// 应用前剥掉，避免替换后出现重复标题。
func (w *WriterClient) RewriteSection(ctx context.Context, userID string, reqBody *models.WriterRewriteReq) (string, error) {
	resp, err := w.postJSON(ctx, w.client, "/rewrite_section", userID, reqBody)
	if err != nil {
		return "", err
	}
	defer closeBody(resp.Body)

	var parsed models.WriterRewriteResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Status != "success" {
		if parsed.Msg != "" {
			return "", fmt.Errorf("rewrite failed: %s", parsed.Msg)
		}
		return "", fmt.Errorf("rewrite unexpected status: %d", resp.StatusCode)
	}
	return StripDuplicateHeading(parsed.Content, reqBody.SectionTitle), nil
}

// StripDuplicateHeading 去掉回复里重复的本节标题行
func StripDuplicateHeading(content, sectionTitle string) string {
	pattern := `(?im)^#+\s*` + regexp.QuoteMeta(sectionTitle) + `.*\n?`
	return strings.TrimSpace(regexp.MustCompile(pattern).ReplaceAllString(content, ""))
}

// PlanWordCount 远端智能字数规划，慢接口，walltime 以 planClient 超时为准
func (w *WriterClient) PlanWordCount(ctx context.Context, totalWords int, leafTitles []string) (map[string]models.LeafPlan, error) {
	reqBody := models.SmartDistributeReq{TotalWords: totalWords, LeafTitles: leafTitles}
	resp, err := w.postJSON(ctx, w.planClient, "/api/smart_distribute", "", reqBody)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp.Body)

	var parsed models.SmartDistributeResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "success" {
		if parsed.Msg != "" {
			return nil, fmt.Errorf("smart_distribute failed: %s", parsed.Msg)
		}
		return nil, fmt.Errorf("smart_distribute unexpected status: %d", resp.StatusCode)
	}
	return parsed.Distribution, nil
}

// ExportDocx markdown 转 docx 透传，返回文件字节
func (w *WriterClient) ExportDocx(ctx context.Context, userID, content string) ([]byte, error) {
	resp, err := w.postJSON(ctx, w.client, "/export_docx", userID, models.ExportReq{Content: content})
	if err != nil {
		return nil, err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export_docx unexpected status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logging.Logger.Error("fail close response body", "error", err)
	}
}
