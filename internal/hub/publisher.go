package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"keijiban/backend/internal/model"
)

// LocalPublisher 单实例部署：直接推送给本进程的客户端
type LocalPublisher struct {
	hub *Hub
}

// NewLocalPublisher 创建 LocalPublisher
func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) PublishActiveNotices(_ context.Context, notices []model.EmergencyNotice) error {
	_, err := p.hub.Broadcast(EventNoticesUpdated, nonNil(notices))
	return err
}

// PubSub 中继所需的发布订阅能力（由 pkg/redis.Client 实现）
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RelayPublisher 多实例部署：帧经 Redis 频道发布，各实例订阅后扇出给本地客户端
type RelayPublisher struct {
	hub     *Hub
	pubsub  PubSub
	channel string
	logger  *zap.Logger
}

// NewRelayPublisher 创建 RelayPublisher
func NewRelayPublisher(hub *Hub, pubsub PubSub, channel string, logger *zap.Logger) *RelayPublisher {
	return &RelayPublisher{hub: hub, pubsub: pubsub, channel: channel, logger: logger}
}

// PublishActiveNotices 发布失败时退回本地推送，并返回错误供调用方记录
func (p *RelayPublisher) PublishActiveNotices(ctx context.Context, notices []model.EmergencyNotice) error {
	frame, err := p.hub.EncodeFrame(EventNoticesUpdated, nonNil(notices))
	if err != nil {
		return err
	}
	if err := p.pubsub.Publish(ctx, p.channel, frame); err != nil {
		p.hub.BroadcastFrame(EventNoticesUpdated, frame)
		return fmt.Errorf("发布到中继频道失败，已仅推送本实例: %w", err)
	}
	return nil
}

// Run 订阅中继频道并扇出，阻塞直到 ctx 取消
func (p *RelayPublisher) Run(ctx context.Context) error {
	return p.pubsub.Subscribe(ctx, p.channel, func(payload []byte) {
		var head struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(payload, &head); err != nil || head.Event == "" {
			p.logger.Warn("忽略无法识别的中继消息", zap.Int("bytes", len(payload)), zap.Error(err))
			return
		}
		p.hub.BroadcastFrame(head.Event, payload)
	})
}

func nonNil(notices []model.EmergencyNotice) []model.EmergencyNotice {
	if notices == nil {
		return []model.EmergencyNotice{}
	}
	return notices
}
