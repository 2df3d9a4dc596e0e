package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"keijiban/backend/internal/dto"
)

const defaultAPITimeout = 30 * time.Second

// APIClient 看板使用的 REST 客户端
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient 创建 APIClient；timeout<=0 时使用 30s
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope 服务端统一响应结构
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetCombinedActive 获取排班组部署与显示部署的统合有效联络事项
func (c *APIClient) GetCombinedActive(ctx context.Context, scheduleGroupID, displayID int) (*dto.ActiveNoticesResponse, error) {
	q := url.Values{}
	q.Set("scheduleGroupDepartmentId", strconv.Itoa(scheduleGroupID))
	q.Set("displayDepartmentId", strconv.Itoa(displayID))
	endpoint := c.baseURL + "/api/v1/emergency-notices/departments/combined/active?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求联络事项失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("解析响应失败 (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return nil, fmt.Errorf("服务端返回失败 (HTTP %d, code=%d): %s", resp.StatusCode, env.Code, env.Message)
	}

	out := dto.EmptyActiveNotices()
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("解析联络事项失败: %w", err)
		}
	}
	if out.Notices == nil {
		out.Notices = dto.EmptyActiveNotices().Notices
	}
	return out, nil
}
