package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Priority 紧急联络事项重要度，数值越大越优先
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityNames = [...]string{"Low", "Normal", "High", "Urgent"}

// ParsePriority 按名称解析（不区分大小写）
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("无效的重要度 %q", s)
}

// Valid 是否为已定义的重要度
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// MarshalJSON 输出名称
func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("无效的重要度 %d", int(p))
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON 同时接受名称与序号（0-3）
func (p *Priority) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		v, err := ParsePriority(name)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("无效的重要度 %s", string(b))
	}
	if !Priority(n).Valid() {
		return fmt.Errorf("无效的重要度 %d", n)
	}
	*p = Priority(n)
	return nil
}

// Scan 数据库中以名称文本存储
func (p *Priority) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*p = PriorityLow
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("Priority.Scan: unsupported type %T", src)
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Value 写入名称文本
func (p Priority) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("无效的重要度 %d", int(p))
	}
	return p.String(), nil
}
